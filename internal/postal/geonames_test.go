package postal

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geowerk/postal-cli/internal/model"
)

const geonamesSample = "DE\t10115\tBerlin\tBerlin\tBE\t\t00\t\t\t52.5323\t13.3846\t4\n" +
	"DE\t20095\tHamburg\tHamburg\tHH\t\t00\t\t\t53.5507\t10.0006\t4\n" +
	"DE\t10115\tBerlin Mitte\tBerlin\tBE\t\t00\t\t\t52.5323\t13.3846\t4\n" +
	"AT\t1010\tWien\tWien\t9\t\t900\t\t\t48.2077\t16.3705\t4\n" +
	"DE\t99998\tOhnekoord\tThüringen\tTH\t\t00\t\t\t\t\t\n" +
	"DE\tshort\n"

func TestParseGeoNames(t *testing.T) {
	records, err := ParseGeoNames(context.Background(), strings.NewReader(geonamesSample), model.Germany)
	require.NoError(t, err)

	require.Len(t, records, 3)

	assert.Equal(t, "10115", records[0].PostalCode)
	assert.Equal(t, "Berlin", records[0].City)
	require.NotNil(t, records[0].Latitude)
	assert.InDelta(t, 52.5323, *records[0].Latitude, 1e-9)

	// duplicate code keeps the first place name
	for _, r := range records {
		if r.PostalCode == "10115" {
			assert.Equal(t, "Berlin", r.City)
		}
	}

	// other countries are filtered out
	for _, r := range records {
		assert.NotEqual(t, "1010", r.PostalCode)
	}

	// missing coordinates yield a record without them
	assert.Equal(t, "99998", records[2].PostalCode)
	assert.Nil(t, records[2].Latitude)
}

func TestParseGeoNames_Empty(t *testing.T) {
	records, err := ParseGeoNames(context.Background(), strings.NewReader(""), model.Germany)
	require.NoError(t, err)
	assert.Empty(t, records)
}
