package db

import (
	"context"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCopyFrom_EmptyRows(t *testing.T) {
	n, err := CopyFrom(context.TODO(), nil, "postal_records", []string{"postal_code", "city"}, nil)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestCopyFrom_Success(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectCopyFrom(pgx.Identifier{"postal_records"}, []string{"postal_code", "city"}).WillReturnResult(3)

	rows := [][]any{{"10115", "Berlin"}, {"20095", "Hamburg"}, {"80331", "München"}}
	n, err := CopyFrom(context.Background(), mock, "postal_records", []string{"postal_code", "city"}, rows)
	assert.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCopyFrom_Error(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectCopyFrom(pgx.Identifier{"postal_records"}, []string{"postal_code"}).WillReturnError(fmt.Errorf("copy failed"))

	rows := [][]any{{"10115"}}
	_, err = CopyFrom(context.Background(), mock, "postal_records", []string{"postal_code"}, rows)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "COPY INTO postal_records")
	assert.NoError(t, mock.ExpectationsWereMet())
}
