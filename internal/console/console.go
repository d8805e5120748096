package console

import (
	"context"
	"net/http"
	"strconv"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/gnemet/crudgrid"
	"github.com/gnemet/crudgrid/internal/logger"
	"github.com/gnemet/crudgrid/render"
)

// DefaultBase is where the console mounts its pages and partials.
const DefaultBase = "/ui"

// Console serves the server-rendered admin pages. Every request builds its
// grids from the query string, so no view state is kept between requests.
type Console struct {
	src      render.Source
	registry *crudgrid.Registry
	renderer *render.Renderer
	log      logger.LoggerI
	base     string
	title    string
}

func New(src render.Source, registry *crudgrid.Registry, renderer *render.Renderer, log logger.LoggerI) *Console {
	return &Console{
		src:      src,
		registry: registry,
		renderer: renderer,
		log:      log,
		base:     DefaultBase,
		title:    "Admin",
	}
}

// Register mounts the menu at / and the console under its base path.
func (c *Console) Register(r gin.IRouter) {
	r.GET("/", c.Index)

	ui := r.Group(c.base)
	ui.GET("/grid", c.Grid)
	ui.GET("/form", c.Form)
	ui.POST("/form", c.Submit)
	ui.GET("/delete", c.ConfirmDelete)
	ui.POST("/delete", c.Delete)
	ui.GET("/:page", c.Page)
}

// gridState locates a grid: the console page, the parent row when it is a
// subgrid, the page number and the open subgrid rows.
type gridState struct {
	page      crudgrid.Page
	parent    int64
	hasParent bool
	p         int
	open      []int64
}

func (c *Console) state(ctx *gin.Context, name string) (gridState, int, error) {
	page, ok := c.registry.Page(name)
	if !ok {
		return gridState{}, http.StatusNotFound, errors.Errorf("unknown page %q", name)
	}
	st := gridState{page: page, p: 1, open: render.ParseIDs(ctx.Query("open"))}

	if s := ctx.Query("p"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			return st, http.StatusBadRequest, errors.Errorf("invalid page number %q", s)
		}
		st.p = n
	}
	if s, ok := ctx.GetQuery("parent"); ok {
		if page.Subgrid == "" {
			return st, http.StatusBadRequest, errors.Errorf("page %s has no subgrid", page.Name)
		}
		id, err := crudgrid.ValidateID(s)
		if err != nil {
			return st, http.StatusBadRequest, err
		}
		st.parent, st.hasParent = id, true
	}
	return st, http.StatusOK, nil
}

func (c *Console) newGrid(st gridState) *render.Grid {
	if st.hasParent {
		return render.NewGrid(c.src, st.page.Subgrid,
			render.WithParent(st.page.ParentKey, st.parent),
			render.WithPage(st.p),
		)
	}
	opts := []render.Option{render.WithPage(st.p), render.WithOpen(st.open...)}
	if st.page.Subgrid != "" {
		opts = append(opts, render.WithSubgrid(st.page.Subgrid, st.page.ParentKey))
	}
	return render.NewGrid(c.src, st.page.Table, opts...)
}

func (c *Console) config(st gridState) render.ViewConfig {
	cfg := render.ViewConfig{
		Base:     c.base,
		Page:     st.page.Name,
		Title:    st.page.Title,
		ReadOnly: st.page.ReadOnly,
	}
	if st.hasParent {
		cfg.Title = crudgrid.CamelCaseToLabel(st.page.Subgrid)
	}
	return cfg
}

func (c *Console) load(ctx context.Context, g *render.Grid) {
	if err := g.Load(ctx); err != nil && !errors.Is(err, render.ErrStale) {
		c.log.Warn("grid load failed", logger.String("table", g.Table), logger.Error(err))
	}
}

// view builds the model of a loaded grid. The subgrids of open rows are
// loaded concurrently; each keeps its own error.
func (c *Console) view(ctx context.Context, g *render.Grid, st gridState) *render.GridView {
	var (
		mu       sync.Mutex
		children = map[int64]*render.GridView{}
	)
	if g.Subgrid != "" {
		eg, ectx := errgroup.WithContext(ctx)
		for _, id := range g.OpenRows() {
			id := id
			eg.Go(func() error {
				cst := gridState{page: st.page, parent: id, hasParent: true, p: 1}
				child := c.newGrid(cst)
				c.load(ectx, child)
				v := render.NewView(child, c.config(cst), nil)
				mu.Lock()
				children[id] = v
				mu.Unlock()
				return nil
			})
		}
		_ = eg.Wait()
	}
	return render.NewView(g, c.config(st), children)
}

func (c *Console) Index(ctx *gin.Context) {
	c.html(ctx, "layout", render.PageView{
		Title: c.title,
		Base:  c.base,
		Pages: c.registry.Pages(),
	})
}

func (c *Console) Page(ctx *gin.Context) {
	st, code, err := c.state(ctx, ctx.Param("page"))
	if err != nil {
		c.fail(ctx, code, err)
		return
	}
	g := c.newGrid(st)
	c.load(ctx.Request.Context(), g)

	c.html(ctx, "layout", render.PageView{
		Title:   st.page.Title,
		Base:    c.base,
		Current: st.page.Name,
		Pages:   c.registry.Pages(),
		Grid:    c.view(ctx.Request.Context(), g, st),
	})
}

func (c *Console) Grid(ctx *gin.Context) {
	st, code, err := c.state(ctx, ctx.Query("page"))
	if err != nil {
		c.fail(ctx, code, err)
		return
	}
	g := c.newGrid(st)
	c.load(ctx.Request.Context(), g)
	c.html(ctx, "grid", c.view(ctx.Request.Context(), g, st))
}

// Form renders the add form, or the edit form when an id is given.
func (c *Console) Form(ctx *gin.Context) {
	st, code, err := c.state(ctx, ctx.Query("page"))
	if err != nil {
		c.fail(ctx, code, err)
		return
	}
	g := c.newGrid(st)
	c.load(ctx.Request.Context(), g)

	var row crudgrid.Row
	if s, ok := ctx.GetQuery("id"); ok {
		id, err := crudgrid.ValidateID(s)
		if err != nil {
			c.fail(ctx, http.StatusBadRequest, err)
			return
		}
		if row, ok = g.Row(id); !ok {
			c.fail(ctx, http.StatusNotFound, errors.Errorf("row %d is not on this page", id))
			return
		}
	} else if st.hasParent {
		// a new child row belongs to the parent it was added under
		row = crudgrid.Row{st.page.ParentKey: st.parent}
	}

	view := render.NewView(g, c.config(st), nil)
	c.html(ctx, "form", render.FormView{
		Grid: view,
		Form: render.NewForm(g.Table, g.Fields(), row),
	})
}

// Submit saves the posted form and answers with the refreshed grid.
func (c *Console) Submit(ctx *gin.Context) {
	st, code, err := c.state(ctx, ctx.Query("page"))
	if err != nil {
		c.fail(ctx, code, err)
		return
	}
	if st.page.ReadOnly {
		c.fail(ctx, http.StatusForbidden, errors.Errorf("page %s is read-only", st.page.Name))
		return
	}
	g := c.newGrid(st)
	c.load(ctx.Request.Context(), g)

	if err := ctx.Request.ParseForm(); err != nil {
		c.fail(ctx, http.StatusBadRequest, err)
		return
	}
	id, data, err := render.ParseForm(g.Fields(), ctx.Request.PostForm)
	if err != nil {
		view := c.view(ctx.Request.Context(), g, st)
		view.Err = err.Error()
		c.html(ctx, "grid", view)
		return
	}
	if id != "" {
		data["id"] = id
	}
	if err := g.Submit(ctx.Request.Context(), data); err != nil {
		c.log.Warn("save failed", logger.String("table", g.Table), logger.Error(err))
	}
	c.html(ctx, "grid", c.view(ctx.Request.Context(), g, st))
}

func (c *Console) ConfirmDelete(ctx *gin.Context) {
	st, code, err := c.state(ctx, ctx.Query("page"))
	if err != nil {
		c.fail(ctx, code, err)
		return
	}
	id, err := crudgrid.ValidateID(ctx.Query("id"))
	if err != nil {
		c.fail(ctx, http.StatusBadRequest, err)
		return
	}
	c.html(ctx, "confirm", render.ConfirmView{
		Grid: render.NewView(c.newGrid(st), c.config(st), nil),
		ID:   id,
	})
}

// Delete removes the row once the confirmation was posted.
func (c *Console) Delete(ctx *gin.Context) {
	st, code, err := c.state(ctx, ctx.Query("page"))
	if err != nil {
		c.fail(ctx, code, err)
		return
	}
	if st.page.ReadOnly {
		c.fail(ctx, http.StatusForbidden, errors.Errorf("page %s is read-only", st.page.Name))
		return
	}
	id, err := crudgrid.ValidateID(ctx.PostForm("id"))
	if err != nil {
		c.fail(ctx, http.StatusBadRequest, err)
		return
	}
	g := c.newGrid(st)
	c.load(ctx.Request.Context(), g)

	confirmed := ctx.PostForm("confirm") == "yes"
	if err := g.Delete(ctx.Request.Context(), id, confirmed); err != nil {
		c.log.Warn("delete failed", logger.String("table", g.Table), logger.Int64("id", id), logger.Error(err))
	}
	view := c.view(ctx.Request.Context(), g, st)
	if !confirmed {
		view.Err = render.ErrNotConfirmed.Error()
	}
	c.html(ctx, "grid", view)
}

func (c *Console) html(ctx *gin.Context, name string, data interface{}) {
	ctx.Header("Content-Type", "text/html; charset=utf-8")
	ctx.Status(http.StatusOK)
	if err := c.renderer.Render(ctx.Writer, name, data); err != nil {
		c.log.Error("render failed", logger.String("template", name), logger.Error(err))
	}
}

func (c *Console) fail(ctx *gin.Context, code int, err error) {
	c.log.Warn("console request rejected", logger.String("path", ctx.Request.URL.Path), logger.Error(err))
	ctx.String(code, err.Error())
}
