package console

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnemet/crudgrid"
	"github.com/gnemet/crudgrid/database/connpool"
	"github.com/gnemet/crudgrid/internal/logger"
	"github.com/gnemet/crudgrid/internal/testdb"
	"github.com/gnemet/crudgrid/render"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestConsole(t *testing.T, orders int) (*gin.Engine, *sqlx.DB, testdb.Fixture) {
	t.Helper()
	db := testdb.New(t)
	fx := testdb.Seed(t, db, orders)

	registry := crudgrid.DefaultRegistry()
	store := crudgrid.NewStore(db, connpool.SQLite, registry, logger.NewNop())
	renderer, err := render.NewRenderer()
	require.NoError(t, err)

	r := gin.New()
	New(store, registry, renderer, logger.NewNop()).Register(r)
	return r, db, fx
}

func get(r http.Handler, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	return w
}

func post(r http.Handler, target string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func count(t *testing.T, db *sqlx.DB, query string, args ...interface{}) int {
	t.Helper()
	var n int
	require.NoError(t, db.Get(&n, query, args...))
	return n
}

func TestIndex(t *testing.T) {
	r, _, _ := newTestConsole(t, 0)

	w := get(r, "/")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	for _, link := range []string{"/ui/customers", "/ui/orders", "/ui/inventory", "/ui/data"} {
		assert.Contains(t, w.Body.String(), `href="`+link+`"`)
	}
}

func TestPage(t *testing.T) {
	r, _, _ := newTestConsole(t, 3)

	w := get(r, "/ui/orders")
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `id="grid-orders"`)
	assert.Contains(t, body, `class="active"`)
	assert.Contains(t, body, "<th>Customer</th>")
	assert.Contains(t, body, "01/15/2024")

	w = get(r, "/ui/data")
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), ">Add</button>")

	w = get(r, "/ui/nope")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGridPartial(t *testing.T) {
	r, _, _ := newTestConsole(t, 3)

	w := get(r, "/ui/grid?page=orders&open=1")
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.NotContains(t, body, "<html>")
	assert.Contains(t, body, `id="grid-orders-1"`)
	assert.Contains(t, body, "INV-0001")

	w = get(r, "/ui/grid?page=orders&parent=2")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `id="grid-orders-2"`)

	for _, target := range []string{
		"/ui/grid?page=customers&parent=1",
		"/ui/grid?page=orders&parent=x",
		"/ui/grid?page=orders&p=0",
	} {
		assert.Equal(t, http.StatusBadRequest, get(r, target).Code, target)
	}
	assert.Equal(t, http.StatusNotFound, get(r, "/ui/grid?page=secrets").Code)
}

func TestForm(t *testing.T) {
	r, _, _ := newTestConsole(t, 1)

	w := get(r, "/ui/form?page=customers")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Add Customers")
	assert.NotContains(t, w.Body.String(), `name="id"`)

	w = get(r, "/ui/form?page=customers&id=2")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Edit Customers")
	assert.Contains(t, w.Body.String(), `name="id" value="2"`)

	w = get(r, "/ui/form?page=orders&parent=1")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Add Order Item")

	w = get(r, "/ui/form?page=orders")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `data-email=`)

	assert.Equal(t, http.StatusNotFound, get(r, "/ui/form?page=customers&id=999").Code)
	assert.Equal(t, http.StatusBadRequest, get(r, "/ui/form?page=customers&id=abc").Code)
}

func TestSubmit(t *testing.T) {
	r, db, fx := newTestConsole(t, 1)

	w := post(r, "/ui/form?page=customers", url.Values{
		"name":  {"Initech"},
		"email": {"info@initech.test"},
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Initech")
	assert.Equal(t, 1, count(t, db, `SELECT COUNT(*) FROM customers WHERE name = ? AND phone IS NULL`, "Initech"))

	w = post(r, "/ui/form?page=customers", url.Values{
		"id":   {"1"},
		"name": {"Renamed"},
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, count(t, db, `SELECT COUNT(*) FROM customers WHERE id = 1 AND name = ?`, "Renamed"))

	// a child row added under order 1
	w = post(r, "/ui/form?page=orders&parent=1", url.Values{
		"orderId":     {"1"},
		"inventoryId": {"2"},
		"quantity":    {"5"},
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 3, count(t, db, `SELECT COUNT(*) FROM orderItems WHERE orderId = ?`, fx.Orders[0]))
}

func TestSubmitErrors(t *testing.T) {
	r, db, _ := newTestConsole(t, 1)

	w := post(r, "/ui/form?page=orders", url.Values{"notes": {"no customer"}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Customer is required")
	assert.Equal(t, 1, count(t, db, `SELECT COUNT(*) FROM orders`))

	w = post(r, "/ui/form?page=customers", url.Values{"name": {"  "}, "email": {"blank@initech.test"}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Name is required")
	assert.Equal(t, 0, count(t, db, `SELECT COUNT(*) FROM customers WHERE email = ?`, "blank@initech.test"))

	w = post(r, "/ui/form?page=data", url.Values{"weight": {"1.5"}})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestDelete(t *testing.T) {
	r, db, fx := newTestConsole(t, 2)

	w := get(r, "/ui/delete?page=orders&id=1")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Delete this row?")
	assert.Contains(t, w.Body.String(), `name="confirm" value="yes"`)

	w = post(r, "/ui/delete?page=orders", url.Values{"id": {"1"}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), render.ErrNotConfirmed.Error())
	assert.Equal(t, 2, count(t, db, `SELECT COUNT(*) FROM orders`))

	w = post(r, "/ui/delete?page=orders", url.Values{"id": {"1"}, "confirm": {"yes"}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, count(t, db, `SELECT COUNT(*) FROM orders`))
	assert.Zero(t, count(t, db, `SELECT COUNT(*) FROM orderItems WHERE orderId = ?`, fx.Orders[0]))

	w = post(r, "/ui/delete?page=data", url.Values{"id": {"1"}, "confirm": {"yes"}})
	assert.Equal(t, http.StatusForbidden, w.Code)
}
