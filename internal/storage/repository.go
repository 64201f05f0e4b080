// Package storage persists imported dispute tables in SQLite so the
// dashboard can serve them without the original file.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"disputes/internal/core"
	"disputes/internal/log"
	ports "disputes/internal/sheets"
)

var (
	_ ports.TableSource = (*SQLiteRepository)(nil)
	_ ports.TableWriter = (*SQLiteRepository)(nil)
)

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	path    string
	logger  *log.Logger
}

func NewSQLiteRepository(dbPath string, logger *log.Logger) (*SQLiteRepository, error) {
	if logger == nil {
		logger = log.Default()
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
		path:    dbPath,
		logger:  logger.WithComponent(log.ComponentStorage),
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Name() string { return "sqlite:" + r.path }

// ReadTable returns the most recent import. With nothing imported it
// returns an empty table, which the loader reports as an empty source.
func (r *SQLiteRepository) ReadTable(ctx context.Context) (core.Table, error) {
	ds, err := r.queries.GetLatestDataset(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Table{}, nil
	}
	if err != nil {
		return core.Table{}, fmt.Errorf("get latest dataset: %w", err)
	}

	var t core.Table
	if err := json.Unmarshal([]byte(ds.Header), &t.Header); err != nil {
		return core.Table{}, fmt.Errorf("decode header of dataset %d: %w", ds.ID, err)
	}
	rows, err := r.queries.GetDatasetRows(ctx, ds.ID)
	if err != nil {
		return core.Table{}, fmt.Errorf("get rows of dataset %d: %w", ds.ID, err)
	}
	t.Rows = make([][]string, 0, len(rows))
	for i, cells := range rows {
		var row []string
		if err := json.Unmarshal([]byte(cells), &row); err != nil {
			return core.Table{}, fmt.Errorf("decode row %d of dataset %d: %w", i, ds.ID, err)
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

// ImportTable stores table as the newest dataset and drops older ones, all
// in one transaction.
func (r *SQLiteRepository) ImportTable(ctx context.Context, name string, table core.Table) error {
	header, err := json.Marshal(table.Header)
	if err != nil {
		return fmt.Errorf("encode header: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	q := r.queries.WithTx(tx)
	ds, err := q.CreateDataset(ctx, CreateDatasetParams{
		Name:     name,
		Header:   string(header),
		RowCount: int64(len(table.Rows)),
	})
	if err != nil {
		return fmt.Errorf("create dataset: %w", err)
	}
	for i, row := range table.Rows {
		cells, err := json.Marshal(row)
		if err != nil {
			return fmt.Errorf("encode row %d: %w", i, err)
		}
		if err := q.InsertDatasetRow(ctx, InsertDatasetRowParams{
			DatasetID: ds.ID,
			Position:  int64(i),
			Cells:     string(cells),
		}); err != nil {
			return fmt.Errorf("insert row %d: %w", i, err)
		}
	}
	if err := q.DeleteRowsBefore(ctx, ds.ID); err != nil {
		return fmt.Errorf("prune rows: %w", err)
	}
	pruned, err := q.DeleteDatasetsBefore(ctx, ds.ID)
	if err != nil {
		return fmt.Errorf("prune datasets: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit import: %w", err)
	}

	r.logger.InfoContext(ctx, "Dataset imported to SQLite",
		"id", ds.ID,
		log.FieldSource, name,
		log.FieldRecords, len(table.Rows),
		"pruned", pruned)
	return nil
}

// Imports lists stored datasets, newest first.
func (r *SQLiteRepository) Imports(ctx context.Context) ([]Dataset, error) {
	items, err := r.queries.ListDatasets(ctx)
	if err != nil {
		return nil, fmt.Errorf("list datasets: %w", err)
	}
	return items, nil
}
