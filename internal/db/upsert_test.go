package db

import (
	"context"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBulkUpsert_EmptyRows(t *testing.T) {
	n, err := BulkUpsert(nil, nil, UpsertConfig{
		Table:        "postal_records",
		Columns:      []string{"postal_code", "city"},
		ConflictKeys: []string{"postal_code"},
	}, nil)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestBulkUpsert_NoColumns(t *testing.T) {
	_, err := BulkUpsert(nil, nil, UpsertConfig{
		Table:        "postal_records",
		ConflictKeys: []string{"postal_code"},
	}, [][]any{{"10115", "Berlin"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no columns specified")
}

func TestBulkUpsert_NoConflictKeys(t *testing.T) {
	_, err := BulkUpsert(nil, nil, UpsertConfig{
		Table:   "postal_records",
		Columns: []string{"postal_code", "city"},
	}, [][]any{{"10115", "Berlin"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no conflict keys specified")
}

func TestBulkUpsert_BeginError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin().WillReturnError(assert.AnError)

	_, err = BulkUpsert(context.Background(), mock, UpsertConfig{
		Table:        "postal_records",
		Columns:      []string{"postal_code", "city"},
		ConflictKeys: []string{"postal_code"},
	}, [][]any{{"10115", "Berlin"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "begin tx")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQuoteAndJoin(t *testing.T) {
	result := quoteAndJoin([]string{"postal_code", "city", "latitude"})
	assert.Equal(t, `"postal_code", "city", "latitude"`, result)
}
