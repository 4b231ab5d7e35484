package postal

import (
	"go.uber.org/zap"

	"github.com/geowerk/postal-cli/internal/model"
)

// Split expands each city's raw postal-code cell and emits one Record per
// code. Duplicate codes are dropped, keeping the first city encountered;
// sources occasionally attribute border codes to more than one place.
func Split(rows []model.CodedCityRow) []model.Record {
	seen := make(map[string]bool)
	var out []model.Record

	for _, row := range rows {
		for _, code := range ExpandRanges(row.PostalCode) {
			if seen[code] {
				continue
			}
			seen[code] = true
			out = append(out, model.Record{PostalCode: code, City: row.City})
		}
	}

	zap.L().Info("postal: split city postal codes",
		zap.Int("cities", len(rows)),
		zap.Int("codes", len(out)),
	)
	return out
}
