package postal

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/geowerk/postal-cli/internal/model"
)

func TestExpandRanges(t *testing.T) {
	tests := []struct {
		name string
		cell string
		want []string
	}{
		{"single code", "10115", []string{"10115"}},
		{"comma list", "10115, 10117", []string{"10115", "10117"}},
		{"range", "01067–01069", []string{"01067", "01068", "01069"}},
		{"mixed", "01067–01069, 01097", []string{"01067", "01068", "01069", "01097"}},
		{"junk stripped", "73430 bis 73434 (Aalen)", []string{"7343073434"}},
		{"junk stripped range", "73430–73434 (Aalen)", []string{"73430", "73431", "73432", "73433", "73434"}},
		{"trailing comma skipped", "10115,", []string{"10115"}},
		{"empty cell", "", nil},
		{"zero padding preserved", "01824–01826", []string{"01824", "01825", "01826"}},
		{"reversed range skipped", "01069–01067", nil},
		{"dash only skipped", "–", nil},
		{"double dash skipped", "01067–01068–01069", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExpandRanges(tt.cell))
		})
	}
}

func TestExpandRanges_OversizedRangeSkipped(t *testing.T) {
	assert.Nil(t, ExpandRanges("00001–99999"))
}

func TestFoldKey(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Baden-Württemberg", "baden-wurttemberg"},
		{"Thüringen", "thuringen"},
		{"Gießen", "giessen"},
		{"München", "munchen"},
		{"Berlin", "berlin"},
		{"  Köln  ", "koln"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FoldKey(tt.in))
	}
}

func TestCleanCityName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Halle (Saale)", "Halle"},
		{"Frankfurt am Main", "Frankfurt am Main"},
		{"Brandenburg an der Havel/Stadt", "Brandenburg an der Havel"},
		{"Essen (Ruhr)", "Essen"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CleanCityName(tt.in))
	}
}

func TestSplit(t *testing.T) {
	rows := []model.CodedCityRow{
		{City: "Dresden", PostalCode: "01067–01069"},
		{City: "Berlin", PostalCode: "10115, 10117"},
		{City: "Shadow", PostalCode: "10115"}, // duplicate code, first city wins
	}

	records := Split(rows)

	var codes []string
	byCode := make(map[string]string)
	for _, r := range records {
		codes = append(codes, r.PostalCode)
		byCode[r.PostalCode] = r.City
	}

	assert.Equal(t, []string{"01067", "01068", "01069", "10115", "10117"}, codes)
	assert.Equal(t, "Berlin", byCode["10115"])
}
