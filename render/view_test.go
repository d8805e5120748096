package render

import (
	"bytes"
	"context"
	"html/template"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnemet/crudgrid"
)

func TestParseJoinIDs(t *testing.T) {
	assert.Equal(t, []int64{3, 5}, ParseIDs("3, x,0,-2,5"))
	assert.Nil(t, ParseIDs(""))
	assert.Equal(t, "1,4,10", JoinIDs(map[int64]bool{10: true, 1: true, 4: true, 7: false}))
	assert.Equal(t, "", JoinIDs(nil))
}

func loadedGrid(t *testing.T, n int, opts ...Option) *Grid {
	t.Helper()
	g := NewGrid(newFakeSource(n), "orders", opts...)
	require.NoError(t, g.Load(context.Background()))
	return g
}

func TestNewView(t *testing.T) {
	g := loadedGrid(t, 3, WithSubgrid("orderItems", "orderId"), WithOpen(2))
	child := &GridView{ID: "grid-orders-2"}

	v := NewView(g, ViewConfig{Base: "/ui", Page: "orders", Title: "Orders"}, map[int64]*GridView{2: child})
	assert.Equal(t, "grid-orders", v.ID)
	assert.True(t, v.HasSubgrid)
	assert.False(t, v.HasParent)
	assert.Equal(t, 3, v.Total)
	assert.False(t, v.Pager.Visible)
	require.Len(t, v.Columns, 1, "id column is hidden")
	assert.Equal(t, "name", v.Columns[0].Name)

	assert.Equal(t, "2", v.Open)
	assert.False(t, v.AllOpen)
	assert.Equal(t, "1,2,3", v.ToggleAll)

	require.Len(t, v.Rows, 3)
	assert.Equal(t, []string{"row"}, v.Rows[0].Cells)
	assert.Equal(t, "1,2", v.Rows[0].ToggleOpen)
	assert.Equal(t, "", v.Rows[1].ToggleOpen)
	assert.True(t, v.Rows[1].Open)
	assert.Same(t, child, v.Rows[1].Child)
	assert.Nil(t, v.Rows[0].Child)
}

func TestNewViewAllOpen(t *testing.T) {
	g := loadedGrid(t, 2, WithSubgrid("orderItems", "orderId"), WithOpen(1, 2, 50))
	v := NewView(g, ViewConfig{Page: "orders"}, nil)
	assert.True(t, v.AllOpen)
	assert.Equal(t, "1,2,50", v.Open)
	assert.Equal(t, "50", v.ToggleAll, "rows off the page stay open")
}

func TestViewQuery(t *testing.T) {
	g := loadedGrid(t, 1, WithParent("orderId", 7))
	v := NewView(g, ViewConfig{Page: "orders"}, nil)
	assert.Equal(t, "grid-orders-7", v.ID)
	assert.Equal(t, "open=1%2C3&p=2&page=orders&parent=7", v.Query(2, "1,3"))
	assert.Equal(t, "page=orders&parent=7", v.State())
}

func TestOptionAttrs(t *testing.T) {
	fn := TemplateFuncs()["optionAttrs"].(func([]Attr) template.HTMLAttr)
	got := fn([]Attr{
		{Name: "data-description", Value: `say "hi" <b>`},
		{Name: "onclick", Value: "alert(1)"},
		{Name: "data-x y", Value: "1"},
	})
	assert.Equal(t, template.HTMLAttr(` data-description="say &#34;hi&#34; &lt;b&gt;"`), got)
}

func render(t *testing.T, name string, data interface{}) string {
	t.Helper()
	r, err := NewRenderer()
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, r.Render(&buf, name, data))
	return buf.String()
}

func TestRenderGrid(t *testing.T) {
	g := loadedGrid(t, 2, WithSubgrid("orderItems", "orderId"))
	v := NewView(g, ViewConfig{Base: "/ui", Page: "orders", Title: "Orders"}, nil)

	out := render(t, "grid", v)
	assert.Contains(t, out, `id="grid-orders"`)
	assert.Contains(t, out, "<h2>Orders</h2>")
	assert.Contains(t, out, "<th>Name</th>")
	assert.Contains(t, out, ">Edit</button>")
	assert.Contains(t, out, ">Add</button>")
	assert.NotContains(t, out, `class="pager"`)

	v.ReadOnly = true
	out = render(t, "grid", v)
	assert.NotContains(t, out, ">Edit</button>")
	assert.NotContains(t, out, ">Add</button>")
}

func TestRenderEmptyGrid(t *testing.T) {
	g := loadedGrid(t, 0)
	out := render(t, "grid", NewView(g, ViewConfig{Base: "/ui", Page: "orders"}, nil))
	assert.Contains(t, out, "No records found")
}

func TestRenderPager(t *testing.T) {
	g := loadedGrid(t, 250, WithPage(2))
	out := render(t, "grid", NewView(g, ViewConfig{Base: "/ui", Page: "orders"}, nil))
	assert.Contains(t, out, `class="pager"`)
	assert.Contains(t, out, `<span class="current">2</span>`)
	assert.Contains(t, out, "250 rows")
}

func TestRenderForm(t *testing.T) {
	g := loadedGrid(t, 1)
	v := NewView(g, ViewConfig{Base: "/ui", Page: "inventory", Title: "Inventory"}, nil)
	form := NewForm("inventory", inventoryFields, crudgrid.Row{"id": int64(4), "vendorId": int64(1)})

	out := render(t, "form", FormView{Grid: v, Form: form, Err: "Quantity is required"})
	assert.Contains(t, out, "Edit Inventory")
	assert.Contains(t, out, `name="id" value="4"`)
	assert.Contains(t, out, `<option value="1" selected data-description="anvils">Acme</option>`)
	assert.Contains(t, out, `<textarea name="notes" maxlength="1000">`)
	assert.Contains(t, out, `step=".01"`)
	assert.Contains(t, out, "Quantity is required")
}

func TestRenderLayout(t *testing.T) {
	out := render(t, "layout", PageView{
		Title: "Admin",
		Base:  "/ui",
		Pages: []crudgrid.Page{{Name: "orders", Title: "Orders"}},
	})
	assert.Contains(t, out, `<a href="/ui/orders">Orders</a>`)
	assert.Contains(t, out, "htmx.org")
}
