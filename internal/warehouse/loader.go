package warehouse

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/umsgroup/adreal-sync/internal/db"
)

// SchemaMismatchError is raised before any delete when the batch columns
// are not a subset of the target table's columns.
type SchemaMismatchError struct {
	Table   string
	Missing []string
}

func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("warehouse: table %s lacks columns %v", e.Table, e.Missing)
}

// Loader replaces monthly partitions of a client table.
type Loader struct {
	pool   db.Pool
	table  string
	schema Schema
}

// NewLoader creates a loader for one client table and schema variant.
func NewLoader(pool db.Pool, table string, schema Schema) *Loader {
	return &Loader{pool: pool, table: table, schema: schema}
}

// Connect opens a pgx pool against the warehouse.
func Connect(ctx context.Context, databaseURL string, maxConns, minConns int32) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, eris.Wrap(err, "warehouse: parse database url")
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}
	if minConns > 0 {
		cfg.MinConns = minConns
	}
	cfg.MaxConnLifetime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, eris.Wrap(err, "warehouse: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "warehouse: ping")
	}
	return pool, nil
}

// ReplaceMonths loads a batch with replace-month semantics: for every
// distinct (year, month) present in the batch, delete that partition,
// then append the whole batch. Delete and append run in one transaction,
// so a failed append rolls the deletes back rather than leaving the
// partition empty. An empty batch is a no-op: no delete is issued for a
// month with no new data.
func (l *Loader) ReplaceMonths(ctx context.Context, rows []Row) (int64, error) {
	log := zap.L().With(zap.String("table", l.table))

	if len(rows) == 0 {
		log.Info("empty batch, skipping warehouse load")
		return 0, nil
	}
	if err := Validate(rows); err != nil {
		return 0, err
	}
	if err := l.checkSchema(ctx); err != nil {
		return 0, err
	}

	months := MonthsOf(rows)

	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "warehouse: begin tx")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	for _, month := range months {
		log.Info("deleting month partition", zap.String("month", month.Format("2006-01")))
		deleteSQL := fmt.Sprintf(
			`DELETE FROM %s WHERE date_trunc('month', %s) = $1`,
			db.TableIdent(l.table).Sanitize(), ColDate,
		)
		if _, err := tx.Exec(ctx, deleteSQL, month); err != nil {
			return 0, eris.Wrapf(err, "warehouse: delete partition %s", month.Format("2006-01"))
		}
	}

	values := make([][]any, len(rows))
	for i, r := range rows {
		values[i] = l.schema.Values(r)
	}
	n, err := db.CopyInto(ctx, tx, l.table, l.schema.Columns(), values)
	if err != nil {
		return 0, eris.Wrapf(err, "warehouse: append %d rows", len(rows))
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, eris.Wrap(err, "warehouse: commit tx")
	}

	log.Info("warehouse load complete",
		zap.Int64("rows", n),
		zap.Int("months_replaced", len(months)),
	)
	return n, nil
}

// checkSchema verifies the batch columns exist on the target table
// before any destructive statement runs.
func (l *Loader) checkSchema(ctx context.Context) error {
	ident := db.TableIdent(l.table)
	schemaName := "public"
	tableName := ident[0]
	if len(ident) == 2 {
		schemaName = ident[0]
		tableName = ident[1]
	}

	rows, err := l.pool.Query(ctx,
		`SELECT column_name FROM information_schema.columns WHERE table_schema = $1 AND table_name = $2`,
		schemaName, tableName,
	)
	if err != nil {
		return eris.Wrapf(err, "warehouse: read schema of %s", l.table)
	}
	defer rows.Close()

	have := make(map[string]bool)
	for rows.Next() {
		var col string
		if err := rows.Scan(&col); err != nil {
			return eris.Wrap(err, "warehouse: scan column name")
		}
		have[col] = true
	}
	if err := rows.Err(); err != nil {
		return eris.Wrapf(err, "warehouse: read schema of %s", l.table)
	}

	var missing []string
	for _, col := range l.schema.Columns() {
		if !have[col] {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return &SchemaMismatchError{Table: l.table, Missing: missing}
	}
	return nil
}
