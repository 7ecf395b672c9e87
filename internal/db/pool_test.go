package db

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ Pool = (*pgxpool.Pool)(nil)
	_ Pool = pgxmock.PgxPoolIface(nil)
)

func TestConnect_EmptyDSN(t *testing.T) {
	_, err := Connect(context.Background(), "")
	assert.ErrorContains(t, err, "no database_url")
}

func TestConnect_InvalidDSN(t *testing.T) {
	_, err := Connect(context.Background(), "postgres://%zz")
	assert.Error(t, err)
}

func TestPool_MockPing(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectPing()

	var p Pool = mock
	require.NoError(t, p.Ping(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
