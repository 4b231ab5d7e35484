package fetcher

import (
	"archive/zip"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func testFetcher() *HTTPFetcher {
	return NewHTTPFetcher(HTTPOptions{
		Timeout:    5 * time.Second,
		MaxRetries: 3,
	})
}

func TestDownload_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "postal-cli/1.0", r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte("hello"))
	}))
	defer srv.Close()

	body, err := testFetcher().Download(context.Background(), srv.URL)
	require.NoError(t, err)
	defer body.Close()

	data, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
}

func TestDownload_RetriesOnServerError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte("recovered"))
	}))
	defer srv.Close()

	body, err := testFetcher().Download(context.Background(), srv.URL)
	require.NoError(t, err)
	defer body.Close()

	data, _ := io.ReadAll(body)
	assert.Equal(t, "recovered", string(data))
	assert.Equal(t, int32(3), calls.Load())
}

func TestDownload_NotFoundIsTerminal(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := testFetcher().Download(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load(), "4xx responses must not be retried")
}

func TestDownloadToFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("file content"))
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "out.csv")
	n, err := testFetcher().DownloadToFile(context.Background(), srv.URL, path)
	require.NoError(t, err)
	assert.Equal(t, int64(12), n)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "file content", string(data))
}

func TestLimiterFor_KnownHost(t *testing.T) {
	f := NewHTTPFetcher(HTTPOptions{
		RateLimiters: map[string]*rate.Limiter{"example.org": rate.NewLimiter(1, 1)},
	})

	assert.Equal(t, rate.Limit(1), f.limiterFor("https://example.org/page").Limit())
	assert.Equal(t, rate.Limit(1), f.limiterFor("https://nominatim.openstreetmap.org/search").Limit())
	assert.Equal(t, rate.Limit(20), f.limiterFor("https://unknown.example.com/").Limit())
}

func TestStreamCSV(t *testing.T) {
	input := "PostalCode,City\n10115,Berlin\n20095,Hamburg\n"
	headerCh := make(chan []string, 1)

	rows, errs := StreamCSV(context.Background(), strings.NewReader(input), CSVOptions{
		HasHeader: true,
		HeaderCh:  headerCh,
	})

	var got [][]string
	for row := range rows {
		got = append(got, row)
	}
	require.NoError(t, <-errs)

	assert.Equal(t, []string{"PostalCode", "City"}, <-headerCh)
	assert.Equal(t, [][]string{{"10115", "Berlin"}, {"20095", "Hamburg"}}, got)
}

func TestStreamCSV_TabDelimited(t *testing.T) {
	input := "DE\t01067\tDresden\n"

	rows, errs := StreamCSV(context.Background(), strings.NewReader(input), CSVOptions{Delimiter: '\t'})

	var got [][]string
	for row := range rows {
		got = append(got, row)
	}
	require.NoError(t, <-errs)
	assert.Equal(t, [][]string{{"DE", "01067", "Dresden"}}, got)
}

func TestExtractZIPFile(t *testing.T) {
	dir := t.TempDir()
	zipPath := filepath.Join(dir, "dump.zip")

	f, err := os.Create(zipPath)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	w, err := zw.Create("DE.txt")
	require.NoError(t, err)
	_, _ = w.Write([]byte("DE\t01067\tDresden\n"))
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	out, err := ExtractZIPFile(zipPath, "DE.txt", dir)
	require.NoError(t, err)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "DE\t01067\tDresden\n", string(data))

	_, err = ExtractZIPFile(zipPath, "FR.txt", dir)
	assert.Error(t, err)
}

func TestParseFTPURL(t *testing.T) {
	host, path, err := parseFTPURL("ftp://download.geonames.org/export/zip/DE.zip")
	require.NoError(t, err)
	assert.Equal(t, "download.geonames.org:21", host)
	assert.Equal(t, "/export/zip/DE.zip", path)

	_, _, err = parseFTPURL("https://example.org/file")
	assert.Error(t, err)
}
