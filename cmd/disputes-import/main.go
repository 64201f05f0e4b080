package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"

	"disputes/internal/backend"
	"disputes/internal/cli"
	"disputes/internal/config"
	"disputes/internal/core"
	"disputes/internal/loader"
	"disputes/internal/log"
	"disputes/internal/sheets"
)

func main() {
	var (
		in         = flag.String("in", "", "CSV or XLSX file to import")
		fromSheets = flag.Bool("sheets", false, "Import from the configured Google Sheet instead of a file")
		dbPath     = flag.String("db", "", "SQLite database path (default: SQLITE_DB_PATH)")
		name       = flag.String("name", "", "Dataset name (default: the source name)")
		list       = flag.Bool("list", false, "List stored imports and exit")
	)
	flag.Parse()

	cli.LoadEnvFile()

	cfg := config.Load()
	logger := cli.SetupLogger(cfg, log.ComponentStorage)
	if *dbPath == "" {
		*dbPath = cfg.SQLiteDBPath
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.SourceTimeout*2)
	defer cancel()

	repo := cli.InitSQLite(logger, *dbPath)
	defer repo.Close()

	if !*list {
		src, cleanup, err := openSource(ctx, logger, cfg, *in, *fromSheets)
		if err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			flag.Usage()
			os.Exit(2)
		}
		err = importTable(ctx, repo, src, *name)
		cleanup.Close()
		if err != nil {
			logger.Error("Import failed", log.FieldOperation, log.OpImport, log.FieldError, err.Error())
			os.Exit(1)
		}
	}

	imports, err := repo.Imports(ctx)
	if err != nil {
		logger.Error("List imports failed", log.FieldError, err.Error())
		os.Exit(1)
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tROWS\tIMPORTED")
	for _, d := range imports {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", d.ID, d.Name, humanize.Comma(d.RowCount), humanize.Time(d.ImportedAt))
	}
	tw.Flush()
}

func openSource(ctx context.Context, logger *log.Logger, cfg *config.Config, in string, fromSheets bool) (sheets.TableSource, *backend.SourceResult, error) {
	switch {
	case fromSheets && in != "":
		return nil, nil, fmt.Errorf("-in and -sheets are mutually exclusive")
	case fromSheets:
		bc, err := backend.FromAppConfig(cfg)
		if err != nil {
			return nil, nil, err
		}
		bc.Type = backend.SheetsBackend
		if err := bc.Validate(); err != nil {
			return nil, nil, err
		}
		res, err := backend.NewFactory(logger).CreateSource(ctx, bc)
		if err != nil {
			return nil, nil, err
		}
		return res.Source, res, nil
	case in != "":
		return &loader.FileSource{Path: in, Delimiter: cfg.Delimiter()}, nil, nil
	}
	return nil, nil, fmt.Errorf("one of -in or -sheets is required")
}

type tableImporter interface {
	ImportTable(ctx context.Context, name string, table core.Table) error
}

// importTable reads src, checks that it parses as a dispute table and
// stores it.
func importTable(ctx context.Context, dst tableImporter, src sheets.TableSource, name string) error {
	started := time.Now()
	table, err := src.ReadTable(ctx)
	if err != nil {
		return fmt.Errorf("read %s: %w", src.Name(), err)
	}
	ds, err := loader.Parse(src.Name(), table)
	if err != nil {
		return err
	}
	if name == "" {
		name = src.Name()
	}
	if err := dst.ImportTable(ctx, name, table); err != nil {
		return err
	}
	fmt.Printf("imported %s rows from %s in %s\n",
		humanize.Comma(int64(ds.Len())), src.Name(), time.Since(started).Round(time.Millisecond))
	return nil
}
