package crudgrid

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/gnemet/crudgrid/internal/logger"
)

// Handler serves the JSON API over a Store.
type Handler struct {
	Store *Store
	log   logger.LoggerI
}

func NewHandler(store *Store, log logger.LoggerI) *Handler {
	return &Handler{Store: store, log: log}
}

// Register mounts the API routes on r.
func (h *Handler) Register(r gin.IRoutes) {
	r.GET("/fetchFields", h.FetchFields)
	r.GET("/fetch", h.FetchData)
	r.GET("/fetchDistinct", h.FetchDistinct)
	r.PUT("/add", h.AddData)
	r.PATCH("/update", h.UpdateData)
	r.DELETE("/delete", h.DeleteData)
}

// ParseParams reads table, fields, where and page from a query string.
// Fields are comma separated; an absent where leaves the filter nil.
func ParseParams(q url.Values) (Query, error) {
	p := Query{
		Table:  q.Get("table"),
		Fields: SplitFields(q.Get("fields")),
	}
	if q.Has("where") {
		w := q.Get("where")
		p.Where = &w
	}
	if s := q.Get("page"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			return p, invalidFormat("page %q", s)
		}
		p.Page = n
	}
	return p, nil
}

// SplitFields splits a comma separated field list, dropping blanks.
func SplitFields(s string) []string {
	var out []string
	for _, f := range strings.Split(s, ",") {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

func (h *Handler) FetchFields(c *gin.Context) {
	table, ok := h.table(c, c.Query("table"))
	if !ok {
		return
	}
	fields, err := h.Store.FetchFields(c.Request.Context(), table, SplitFields(c.Query("fields")))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, fields)
}

func (h *Handler) FetchData(c *gin.Context) {
	q, err := ParseParams(c.Request.URL.Query())
	if err != nil {
		h.fail(c, err)
		return
	}
	if _, ok := h.table(c, q.Table); !ok {
		return
	}
	rows, err := h.Store.FetchData(c.Request.Context(), q)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (h *Handler) FetchDistinct(c *gin.Context) {
	q, err := ParseParams(c.Request.URL.Query())
	if err != nil {
		h.fail(c, err)
		return
	}
	if _, ok := h.table(c, q.Table); !ok {
		return
	}
	rows, err := h.Store.FetchDistinct(c.Request.Context(), q.Table, q.Fields, q.Where)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (h *Handler) AddData(c *gin.Context) {
	body, ok := h.body(c)
	if !ok {
		return
	}
	table, ok := h.table(c, cutString(body, "table"))
	if !ok {
		return
	}
	id, err := h.Store.AddData(c.Request.Context(), table, body)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id})
}

func (h *Handler) UpdateData(c *gin.Context) {
	body, ok := h.body(c)
	if !ok {
		return
	}
	table, ok := h.table(c, cutString(body, "table"))
	if !ok {
		return
	}
	rawID, present := body["id"]
	if !present {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id is required"})
		return
	}
	delete(body, "id")

	id, err := h.Store.UpdateData(c.Request.Context(), table, rawID, body)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id})
}

func (h *Handler) DeleteData(c *gin.Context) {
	table, ok := h.table(c, c.Query("table"))
	if !ok {
		return
	}
	rawID, present := c.GetQuery("id")
	if !present {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id is required"})
		return
	}
	id, err := h.Store.DeleteData(c.Request.Context(), table, rawID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id})
}

func (h *Handler) table(c *gin.Context, table string) (string, bool) {
	if table == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "table is required"})
		return "", false
	}
	return table, true
}

func (h *Handler) body(c *gin.Context) (map[string]interface{}, bool) {
	var body map[string]interface{}
	dec := json.NewDecoder(c.Request.Body)
	dec.UseNumber()
	if err := dec.Decode(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body: " + err.Error()})
		return nil, false
	}
	return body, true
}

func (h *Handler) fail(c *gin.Context, err error) {
	code := StatusCode(err)
	fields := []logger.Field{
		logger.String("path", c.FullPath()),
		logger.Int("status", code),
		logger.Error(err),
	}
	if code >= http.StatusInternalServerError {
		h.log.Error("request failed", fields...)
	} else {
		h.log.Warn("request rejected", fields...)
	}
	c.JSON(code, gin.H{"error": err.Error()})
}

// cutString removes key from m and returns its string value.
func cutString(m map[string]interface{}, key string) string {
	v, ok := m[key]
	if !ok {
		return ""
	}
	delete(m, key)
	s, _ := v.(string)
	return s
}
