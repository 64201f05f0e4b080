// Package memory keeps a dispute table in process. It backs demos and tests
// and can receive imports like the persistent backends.
package memory

import (
	"context"
	"fmt"
	"sync"

	"disputes/internal/core"
	ports "disputes/internal/sheets"
)

var (
	_ ports.TableSource = (*Store)(nil)
	_ ports.TableWriter = (*Store)(nil)
)

type Store struct {
	mu    sync.Mutex
	name  string
	table core.Table
}

func New(name string, table core.Table) *Store {
	s := &Store{name: name}
	s.table = cloneTable(table)
	return s
}

// NewDemo returns a store seeded with a small, deterministic sample spanning
// two months, both signs and every category dimension.
func NewDemo() *Store {
	header := []string{
		core.ColPONumber, core.ColDisputedAt, core.ColDiscrepancyValue,
		core.ColCustomerName, core.ColSiteName, core.ColItem,
		core.ColDiscrepancyType, core.ColGallons, core.ColStatus,
		core.ColExpectedRate, core.ColBilledRate,
	}
	customers := []string{"Acme Freight", "Blue Ridge Transport", "Coastal Haulers", "Delta Logistics"}
	sites := []string{"North Yard", "South Depot", "East Terminal"}
	items := []string{"Diesel", "Gasoline", "DEF"}
	types := []string{"rate", "volume", "tax"}
	statuses := []string{"open", "resolved", "closed"}

	rows := make([][]string, 0, 48)
	for i := 0; i < 48; i++ {
		month := 1 + i/24
		day := 1 + (i*7)%28
		gallons := 200 + (i*37)%900
		expected := 3.10 + float64(i%5)*0.05
		billed := expected + float64((i*13)%9-4)*0.03
		value := (expected - billed) * float64(gallons)
		rows = append(rows, []string{
			fmt.Sprintf("PO-%05d", 10000+i),
			fmt.Sprintf("2024-%02d-%02d", month, day),
			fmt.Sprintf("%.2f", value),
			customers[i%len(customers)],
			sites[(i/2)%len(sites)],
			items[(i/3)%len(items)],
			types[i%len(types)],
			fmt.Sprintf("%d", gallons),
			statuses[(i/5)%len(statuses)],
			fmt.Sprintf("%.3f", expected),
			fmt.Sprintf("%.3f", billed),
		})
	}
	return New("memory:demo", core.Table{Header: header, Rows: rows})
}

func (s *Store) Name() string { return s.name }

// ReadTable returns a copy; callers may mutate it freely.
func (s *Store) ReadTable(ctx context.Context) (core.Table, error) {
	if err := ctx.Err(); err != nil {
		return core.Table{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneTable(s.table), nil
}

// ImportTable replaces the stored table.
func (s *Store) ImportTable(ctx context.Context, name string, table core.Table) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if name != "" {
		s.name = name
	}
	s.table = cloneTable(table)
	return nil
}

func cloneTable(t core.Table) core.Table {
	out := core.Table{Header: append([]string(nil), t.Header...)}
	if t.Rows != nil {
		out.Rows = make([][]string, len(t.Rows))
		for i, r := range t.Rows {
			out.Rows[i] = append([]string(nil), r...)
		}
	}
	return out
}
