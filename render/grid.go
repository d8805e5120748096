package render

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/pkg/errors"
	"github.com/spf13/cast"
	"golang.org/x/sync/errgroup"

	"github.com/gnemet/crudgrid"
)

// Source is the data access a grid needs. *crudgrid.Store implements it.
type Source interface {
	FetchFields(ctx context.Context, table string, fields []string) ([]crudgrid.Field, error)
	FetchData(ctx context.Context, q crudgrid.Query) ([]crudgrid.Row, error)
	AddData(ctx context.Context, table string, data map[string]interface{}) (int64, error)
	UpdateData(ctx context.Context, table string, id interface{}, data map[string]interface{}) (int64, error)
	DeleteData(ctx context.Context, table string, id interface{}) (int64, error)
}

// State is the load state of a grid.
type State int

const (
	Loading State = iota
	Ready
)

func (s State) String() string {
	if s == Ready {
		return "ready"
	}
	return "loading"
}

var (
	// ErrStale is returned by Load when the grid was unmounted or its inputs
	// changed while the fetch was in flight; the result was discarded.
	ErrStale = errors.New("grid changed while loading")
	// ErrNotConfirmed is returned by Delete without an explicit confirmation.
	ErrNotConfirmed = errors.New("delete not confirmed")
)

// Grid holds the view state of one data grid: which page of which table is
// shown, its loaded fields and rows, the last error and the set of rows whose
// subgrid is open. It is safe for concurrent use.
type Grid struct {
	src Source

	Table      string
	Subgrid    string
	SubgridKey string
	ParentKey  string

	mu         sync.Mutex
	parent     *int64
	page       int
	refresh    int
	generation uint64
	mounted    bool
	state      State
	err        error
	fields     []crudgrid.Field
	rows       []crudgrid.Row
	open       map[int64]bool
}

// Option configures a Grid.
type Option func(*Grid)

// WithSubgrid gives every row an expandable child grid over table whose
// parentKey column refers to the row.
func WithSubgrid(table, parentKey string) Option {
	return func(g *Grid) {
		g.Subgrid = table
		g.SubgridKey = parentKey
	}
}

// WithParent filters the grid to the children of a parent row.
func WithParent(parentKey string, id int64) Option {
	return func(g *Grid) {
		g.ParentKey = parentKey
		g.parent = &id
	}
}

// WithPage selects the initial page.
func WithPage(page int) Option {
	return func(g *Grid) {
		if page > 1 {
			g.page = page
		}
	}
}

// WithOpen marks rows whose subgrid starts expanded.
func WithOpen(ids ...int64) Option {
	return func(g *Grid) {
		for _, id := range ids {
			g.open[id] = true
		}
	}
}

// NewGrid returns a mounted grid in the Loading state.
func NewGrid(src Source, table string, opts ...Option) *Grid {
	g := &Grid{
		src:     src,
		Table:   table,
		page:    1,
		mounted: true,
		state:   Loading,
		open:    map[int64]bool{},
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

// Load fetches the fields and the current page concurrently. The result is
// applied only if the grid is still mounted and no newer load was started;
// otherwise ErrStale is returned. A failed load keeps the previous data.
func (g *Grid) Load(ctx context.Context) error {
	g.mu.Lock()
	g.generation++
	gen := g.generation
	g.state = Loading
	q := crudgrid.Query{Table: g.Table, Page: g.page, Where: g.whereLocked()}
	g.mu.Unlock()

	var (
		fields []crudgrid.Field
		rows   []crudgrid.Row
	)
	eg, ectx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		var err error
		fields, err = g.src.FetchFields(ectx, q.Table, nil)
		return err
	})
	eg.Go(func() error {
		var err error
		rows, err = g.src.FetchData(ectx, q)
		return err
	})
	err := eg.Wait()

	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.mounted || gen != g.generation {
		return ErrStale
	}
	g.state = Ready
	if err != nil {
		g.err = err
		return err
	}
	g.fields = fields
	g.rows = rows
	g.err = nil
	return nil
}

// Unmount detaches the grid; loads still in flight are discarded.
func (g *Grid) Unmount() {
	g.mu.Lock()
	g.mounted = false
	g.mu.Unlock()
}

// SetPage selects a page and reports whether it changed.
func (g *Grid) SetPage(page int) bool {
	if page < 1 {
		page = 1
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.page == page {
		return false
	}
	g.page = page
	g.state = Loading
	return true
}

// SetParent filters the grid to the children of another parent row and
// reports whether the filter changed.
func (g *Grid) SetParent(id int64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.parent != nil && *g.parent == id {
		return false
	}
	g.parent = &id
	g.page = 1
	g.state = Loading
	return true
}

// Refresh bumps the refresh counter so the next Load refetches.
func (g *Grid) Refresh() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.refresh++
	g.state = Loading
	return g.refresh
}

// Submit adds the row when data has no id and updates it otherwise, then
// refreshes and reloads the grid. Failures are kept as the grid error.
func (g *Grid) Submit(ctx context.Context, data map[string]interface{}) error {
	id, hasID := data["id"]
	if hasID && (id == nil || cast.ToString(id) == "") {
		hasID = false
	}

	payload := make(map[string]interface{}, len(data))
	for k, v := range data {
		if k != "id" {
			payload[k] = v
		}
	}

	var err error
	if hasID {
		_, err = g.src.UpdateData(ctx, g.Table, id, payload)
	} else {
		_, err = g.src.AddData(ctx, g.Table, payload)
	}
	return g.afterMutation(ctx, err)
}

// Delete removes a row once the user confirmed it, then refreshes and
// reloads the grid.
func (g *Grid) Delete(ctx context.Context, id int64, confirmed bool) error {
	if !confirmed {
		return ErrNotConfirmed
	}
	_, err := g.src.DeleteData(ctx, g.Table, id)
	if err == nil {
		g.mu.Lock()
		delete(g.open, id)
		g.mu.Unlock()
	}
	return g.afterMutation(ctx, err)
}

func (g *Grid) afterMutation(ctx context.Context, err error) error {
	if err != nil {
		g.mu.Lock()
		g.err = err
		g.mu.Unlock()
		return err
	}
	g.Refresh()
	return g.Load(ctx)
}

// ToggleRow flips the subgrid of one row.
func (g *Grid) ToggleRow(id int64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.open[id] {
		delete(g.open, id)
	} else {
		g.open[id] = true
	}
}

// ToggleAll opens every row unless all rows are open already, in which case
// it closes them.
func (g *Grid) ToggleAll() {
	g.mu.Lock()
	defer g.mu.Unlock()
	openAll := !g.allOpenLocked()
	for _, r := range g.rows {
		if openAll {
			g.open[r.ID()] = true
		} else {
			delete(g.open, r.ID())
		}
	}
}

// AllOpen reports whether every loaded row has its subgrid open. A grid
// without rows is never all open.
func (g *Grid) AllOpen() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.allOpenLocked()
}

func (g *Grid) allOpenLocked() bool {
	if len(g.rows) == 0 {
		return false
	}
	for _, r := range g.rows {
		if !g.open[r.ID()] {
			return false
		}
	}
	return true
}

// IsOpen reports whether the subgrid of a row is open.
func (g *Grid) IsOpen(id int64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.open[id]
}

// OpenRows returns the open row ids that are on the current page, in order.
func (g *Grid) OpenRows() []int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	var ids []int64
	for _, r := range g.rows {
		if g.open[r.ID()] {
			ids = append(ids, r.ID())
		}
	}
	return ids
}

// OpenSet returns every open row id in ascending order.
func (g *Grid) OpenSet() []int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	ids := make([]int64, 0, len(g.open))
	for id := range g.open {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (g *Grid) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

func (g *Grid) Err() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.err
}

func (g *Grid) Fields() []crudgrid.Field {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.fields
}

func (g *Grid) Rows() []crudgrid.Row {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.rows
}

func (g *Grid) Page() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.page
}

// Parent returns the parent row id and whether the grid is filtered by one.
func (g *Grid) Parent() (int64, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.parent == nil {
		return 0, false
	}
	return *g.parent, true
}

// TotalCount is the number of rows matching the grid filter.
func (g *Grid) TotalCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return crudgrid.TotalCount(g.rows)
}

// Pager derives the pagination controls from the loaded rows.
func (g *Grid) Pager() Pager {
	g.mu.Lock()
	defer g.mu.Unlock()
	return Paginate(crudgrid.TotalCount(g.rows), g.page)
}

// Row returns the loaded row with the given id.
func (g *Grid) Row(id int64) (crudgrid.Row, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, r := range g.rows {
		if r.ID() == id {
			return r, true
		}
	}
	return nil, false
}

func (g *Grid) whereLocked() *string {
	if g.parent == nil || g.ParentKey == "" {
		return nil
	}
	w := fmt.Sprintf("%s=%d", g.ParentKey, *g.parent)
	return &w
}
