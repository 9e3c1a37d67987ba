package warehouse

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func augRow(brand string, contacts int64) Row {
	return Row{
		Date:         time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC),
		BrandOwner:   "Acme Group",
		Brand:        brand,
		ContentType:  "Standard",
		MediaChannel: "hotnews.ro",
		AdContacts:   contacts,
	}
}

func expectSchemaCheck(m pgxmock.PgxPoolIface, cols []string) {
	rows := pgxmock.NewRows([]string{"column_name"})
	for _, c := range cols {
		rows.AddRow(c)
	}
	m.ExpectQuery("SELECT column_name FROM information_schema.columns").
		WithArgs("public", "acme_stats").
		WillReturnRows(rows)
}

var baseCols = []string{ColDate, ColBrandOwner, ColBrand, ColContentType, ColMediaOwner, ColMediaChannel, ColAdContacts}

func TestReplaceMonths(t *testing.T) {
	pool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer pool.Close()

	expectSchemaCheck(pool, baseCols)
	pool.ExpectBegin()
	pool.ExpectExec("DELETE FROM").
		WithArgs(time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)).
		WillReturnResult(pgxmock.NewResult("DELETE", 42))
	pool.ExpectCopyFrom(pgx.Identifier{"acme_stats"}, baseCols).WillReturnResult(2)
	pool.ExpectCommit()

	l := NewLoader(pool, "acme_stats", Schema{})
	n, err := l.ReplaceMonths(context.Background(), []Row{augRow("Acme Soda", 100), augRow("Acme Zero", 50)})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	require.NoError(t, pool.ExpectationsWereMet())
}

func TestReplaceMonthsMultipleMonths(t *testing.T) {
	pool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer pool.Close()

	julRow := augRow("Acme Soda", 10)
	julRow.Date = time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)

	expectSchemaCheck(pool, baseCols)
	pool.ExpectBegin()
	pool.ExpectExec("DELETE FROM").
		WithArgs(time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	pool.ExpectExec("DELETE FROM").
		WithArgs(time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	pool.ExpectCopyFrom(pgx.Identifier{"acme_stats"}, baseCols).WillReturnResult(2)
	pool.ExpectCommit()

	l := NewLoader(pool, "acme_stats", Schema{})
	n, err := l.ReplaceMonths(context.Background(), []Row{julRow, augRow("Acme Soda", 20)})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	require.NoError(t, pool.ExpectationsWereMet())
}

func TestReplaceMonthsEmptyBatchIssuesNoSQL(t *testing.T) {
	pool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer pool.Close()

	l := NewLoader(pool, "acme_stats", Schema{})
	n, err := l.ReplaceMonths(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, n)
	// No delete, no copy: a month with no new data keeps its old rows.
	require.NoError(t, pool.ExpectationsWereMet())
}

func TestReplaceMonthsSchemaMismatchBeforeDelete(t *testing.T) {
	pool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer pool.Close()

	// Table lacks ad_contacts; the loader must fail before any delete.
	expectSchemaCheck(pool, []string{ColDate, ColBrandOwner, ColBrand, ColContentType, ColMediaOwner, ColMediaChannel})

	l := NewLoader(pool, "acme_stats", Schema{})
	_, err = l.ReplaceMonths(context.Background(), []Row{augRow("Acme Soda", 1)})
	require.Error(t, err)

	var sme *SchemaMismatchError
	require.ErrorAs(t, err, &sme)
	assert.Equal(t, []string{ColAdContacts}, sme.Missing)
	require.NoError(t, pool.ExpectationsWereMet())
}

func TestReplaceMonthsCopyFailureRollsBack(t *testing.T) {
	pool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer pool.Close()

	expectSchemaCheck(pool, baseCols)
	pool.ExpectBegin()
	pool.ExpectExec("DELETE FROM").
		WithArgs(time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)).
		WillReturnResult(pgxmock.NewResult("DELETE", 10))
	pool.ExpectCopyFrom(pgx.Identifier{"acme_stats"}, baseCols).
		WillReturnError(errors.New("copy failed"))
	pool.ExpectRollback()

	l := NewLoader(pool, "acme_stats", Schema{})
	_, err = l.ReplaceMonths(context.Background(), []Row{augRow("Acme Soda", 1)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "copy failed")
	require.NoError(t, pool.ExpectationsWereMet())
}

func TestReplaceMonthsInvalidRowRejected(t *testing.T) {
	pool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer pool.Close()

	bad := augRow("Acme Soda", 1)
	bad.Date = time.Date(2025, 8, 15, 0, 0, 0, 0, time.UTC)

	l := NewLoader(pool, "acme_stats", Schema{})
	_, err = l.ReplaceMonths(context.Background(), []Row{bad})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not the first of a month")
	require.NoError(t, pool.ExpectationsWereMet())
}

func TestReplaceMonthsSchemaQualifiedTable(t *testing.T) {
	pool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer pool.Close()

	rows := pgxmock.NewRows([]string{"column_name"})
	for _, c := range baseCols {
		rows.AddRow(c)
	}
	pool.ExpectQuery("SELECT column_name FROM information_schema.columns").
		WithArgs("reporting", "acme_stats").
		WillReturnRows(rows)
	pool.ExpectBegin()
	pool.ExpectExec("DELETE FROM").
		WithArgs(time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	pool.ExpectCopyFrom(pgx.Identifier{"reporting", "acme_stats"}, baseCols).WillReturnResult(1)
	pool.ExpectCommit()

	l := NewLoader(pool, "reporting.acme_stats", Schema{})
	n, err := l.ReplaceMonths(context.Background(), []Row{augRow("Acme Soda", 1)})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	require.NoError(t, pool.ExpectationsWereMet())
}
