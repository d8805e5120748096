package render

import (
	"embed"
	"html"
	"html/template"
	"io"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/gnemet/crudgrid"
)

//go:embed templates/*.html
var templateFS embed.FS

// ViewConfig names the console page a grid belongs to and where its
// partials are served from.
type ViewConfig struct {
	Base     string
	Page     string
	Title    string
	ReadOnly bool
}

// GridView is the template model of a loaded grid.
type GridView struct {
	ViewConfig

	ID         string
	Table      string
	Parent     int64
	HasParent  bool
	ParentKey  string
	HasSubgrid bool
	Columns    []crudgrid.Field
	Rows       []RowView
	Pager      Pager
	Total      int
	Err        string
	Open       string
	AllOpen    bool
	ToggleAll  string
	Loading    bool
}

// RowView is one rendered grid row.
type RowView struct {
	ID         int64
	Cells      []string
	Open       bool
	ToggleOpen string
	Child      *GridView
}

// NewView derives the template model of g. children holds the already loaded
// subgrids of open rows, keyed by parent row id.
func NewView(g *Grid, cfg ViewConfig, children map[int64]*GridView) *GridView {
	v := &GridView{
		ViewConfig: cfg,
		Table:      g.Table,
		ParentKey:  g.ParentKey,
		HasSubgrid: g.Subgrid != "",
		Pager:      g.Pager(),
		Total:      g.TotalCount(),
		Loading:    g.State() == Loading,
	}
	v.Parent, v.HasParent = g.Parent()
	v.ID = "grid-" + cfg.Page
	if v.HasParent {
		v.ID += "-" + strconv.FormatInt(v.Parent, 10)
	}
	if err := g.Err(); err != nil {
		v.Err = err.Error()
	}

	for _, f := range g.Fields() {
		if f.Name != "id" {
			v.Columns = append(v.Columns, f)
		}
	}

	open := map[int64]bool{}
	for _, id := range g.OpenSet() {
		open[id] = true
	}
	v.Open = JoinIDs(open)
	v.AllOpen = g.AllOpen()

	rows := g.Rows()
	all := copySet(open)
	for _, r := range rows {
		if v.AllOpen {
			delete(all, r.ID())
		} else {
			all[r.ID()] = true
		}
	}
	v.ToggleAll = JoinIDs(all)

	for _, r := range rows {
		id := r.ID()
		rv := RowView{ID: id, Open: open[id]}
		for _, f := range v.Columns {
			rv.Cells = append(rv.Cells, FormatCell(f, r))
		}
		toggled := copySet(open)
		if toggled[id] {
			delete(toggled, id)
		} else {
			toggled[id] = true
		}
		rv.ToggleOpen = JoinIDs(toggled)
		if rv.Open {
			rv.Child = children[id]
		}
		v.Rows = append(v.Rows, rv)
	}
	return v
}

// FormView is the model of the add/edit form partial.
type FormView struct {
	Grid *GridView
	Form Form
	Err  string
}

// ConfirmView is the model of the delete confirmation partial.
type ConfirmView struct {
	Grid *GridView
	ID   int64
}

// PageView is the model of a full console page. Grid is nil on the menu.
type PageView struct {
	Title   string
	Base    string
	Current string
	Pages   []crudgrid.Page
	Grid    *GridView
}

// Query encodes the grid's location with the given page and open set.
func (v *GridView) Query(page int, open string) string {
	q := url.Values{}
	q.Set("page", v.Page)
	if v.HasParent {
		q.Set("parent", strconv.FormatInt(v.Parent, 10))
	}
	if page > 1 {
		q.Set("p", strconv.Itoa(page))
	}
	if open != "" {
		q.Set("open", open)
	}
	return q.Encode()
}

// State is the query string that reproduces the grid as shown.
func (v *GridView) State() string {
	return v.Query(v.Pager.Page, v.Open)
}

// ParseIDs reads a comma separated id list, skipping anything that is not a
// positive integer.
func ParseIDs(s string) []int64 {
	var ids []int64
	for _, part := range strings.Split(s, ",") {
		n, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err == nil && n > 0 {
			ids = append(ids, n)
		}
	}
	return ids
}

// JoinIDs is the inverse of ParseIDs, in ascending order.
func JoinIDs(set map[int64]bool) string {
	ids := make([]int64, 0, len(set))
	for id, ok := range set {
		if ok {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}

func copySet(m map[int64]bool) map[int64]bool {
	out := make(map[int64]bool, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

var attrName = regexp.MustCompile(`^data-[a-z0-9-]+$`)

// TemplateFuncs are the helpers available to the grid templates.
func TemplateFuncs() template.FuncMap {
	return template.FuncMap{
		"formatCell": FormatCell,
		"optionAttrs": func(attrs []Attr) template.HTMLAttr {
			var b strings.Builder
			for _, a := range attrs {
				if !attrName.MatchString(a.Name) {
					continue
				}
				b.WriteString(" ")
				b.WriteString(a.Name)
				b.WriteString(`="`)
				b.WriteString(html.EscapeString(a.Value))
				b.WriteString(`"`)
			}
			return template.HTMLAttr(b.String())
		},
		"colspan": func(v *GridView) int {
			n := len(v.Columns)
			if v.HasSubgrid {
				n++
			}
			if !v.ReadOnly {
				n++
			}
			return n
		},
	}
}

// Renderer executes the embedded grid, form and page templates.
type Renderer struct {
	tmpl *template.Template
}

func NewRenderer() (*Renderer, error) {
	t, err := template.New("crudgrid").Funcs(TemplateFuncs()).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	return &Renderer{tmpl: t}, nil
}

// Template returns the parsed template set, e.g. for gin's SetHTMLTemplate.
func (r *Renderer) Template() *template.Template { return r.tmpl }

func (r *Renderer) Render(w io.Writer, name string, data interface{}) error {
	return r.tmpl.ExecuteTemplate(w, name, data)
}
