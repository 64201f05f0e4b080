package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"disputes/internal/core"
	"disputes/internal/log"
	"disputes/internal/sheets/memory"
	"disputes/internal/storage"
)

func TestImportTable(t *testing.T) {
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "d.db"), log.Discard())
	require.NoError(t, err)
	defer repo.Close()

	ctx := context.Background()
	require.NoError(t, importTable(ctx, repo, memory.NewDemo(), ""))

	imports, err := repo.Imports(ctx)
	require.NoError(t, err)
	require.Len(t, imports, 1)
	assert.Equal(t, "memory:demo", imports[0].Name)
	assert.EqualValues(t, 48, imports[0].RowCount)
}

func TestImportTableRejectsUnparseable(t *testing.T) {
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "d.db"), log.Discard())
	require.NoError(t, err)
	defer repo.Close()

	src := memory.New("bad", core.Table{Header: []string{"po_number"}, Rows: [][]string{{"PO-1"}}})
	err = importTable(context.Background(), repo, src, "bad")
	require.Error(t, err)
	assert.True(t, core.IsLoadError(err))

	imports, err := repo.Imports(context.Background())
	require.NoError(t, err)
	assert.Empty(t, imports, "nothing is stored when parsing fails")
}
