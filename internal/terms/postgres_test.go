package terms

import (
	"context"
	"errors"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/mapviz/internal/tile"
)

func TestNewPostgresSource_InvalidIdentifier(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	for _, table := range []string{"", "docs; DROP TABLE docs", "Docs", "a.b.c"} {
		_, err := NewPostgresSource(mock, PostgresConfig{Table: table})
		assert.Error(t, err, table)
	}
	_, err = NewPostgresSource(mock, PostgresConfig{Table: "geo.pickups", GeomColumn: "geom)--"})
	assert.Error(t, err)
}

func TestPostgresSource_Counts(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	c := tile.Coord{Z: 10, X: 301, Y: 385}
	env, err := c.EnvelopeEWKB()
	require.NoError(t, err)

	src, err := NewPostgresSource(mock, PostgresConfig{Table: "geo.pickups"})
	require.NoError(t, err)

	mock.ExpectQuery(`SELECT term, COUNT\(\*\) AS term_count FROM \(\s+SELECT unnest\(terms\) AS term\s+FROM geo.pickups\s+WHERE ST_Intersects\(geom, ST_GeomFromEWKB\(\$1\)\)`).
		WithArgs(env, DefaultLimit).
		WillReturnRows(pgxmock.NewRows([]string{"term", "term_count"}).
			AddRow("taxi", int64(42)).
			AddRow("airport", int64(7)))

	got, err := src.Counts(context.Background(), c)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"taxi": 42, "airport": 7}, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSource_TargetTerms(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	c := tile.Coord{Z: 2, X: 1, Y: 1}
	env, err := c.EnvelopeEWKB()
	require.NoError(t, err)

	src, err := NewPostgresSource(mock, PostgresConfig{
		Table:       "docs",
		TermsColumn: "topics",
		Limit:       5,
		Terms:       []string{"taxi", "bus"},
	})
	require.NoError(t, err)

	mock.ExpectQuery(`(?s)unnest\(topics\).*WHERE term = ANY\(\$3\)\s+GROUP BY term\s+ORDER BY term_count DESC\s+LIMIT \$2`).
		WithArgs(env, 5, []string{"taxi", "bus"}).
		WillReturnRows(pgxmock.NewRows([]string{"term", "term_count"}).AddRow("bus", int64(3)))

	got, err := src.Counts(context.Background(), c)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"bus": 3}, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSource_QueryError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	src, err := NewPostgresSource(mock, PostgresConfig{Table: "docs"})
	require.NoError(t, err)

	mock.ExpectQuery(`SELECT term`).WillReturnError(errors.New("connection reset"))

	_, err = src.Counts(context.Background(), tile.Coord{})
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
