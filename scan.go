package crudgrid

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cast"
)

// Row is one result row keyed by column name. Paged results carry an extra
// "count" column holding the total number of matching rows.
type Row map[string]interface{}

// CountColumn is the synthetic total-count column injected into paged rows.
const CountColumn = "count"

// ID returns the row's id column, or 0 when it is missing.
func (r Row) ID() int64 {
	return cast.ToInt64(r["id"])
}

// Count returns the total row count carried by a paged result row.
func (r Row) Count() int {
	return cast.ToInt(r[CountColumn])
}

// TotalCount reads the injected count from the first row; an empty page has
// no rows to carry it and counts as zero.
func TotalCount(rows []Row) int {
	if len(rows) == 0 {
		return 0
	}
	return rows[0].Count()
}

func scanRows(rows *sqlx.Rows) ([]Row, error) {
	defer rows.Close()

	dates := map[string]bool{}
	if types, err := rows.ColumnTypes(); err == nil {
		for _, ct := range types {
			dates[ct.Name()] = strings.EqualFold(ct.DatabaseTypeName(), "DATE")
		}
	}

	out := []Row{}
	for rows.Next() {
		m := map[string]interface{}{}
		if err := rows.MapScan(m); err != nil {
			return nil, err
		}
		for k, v := range m {
			if t, ok := v.(time.Time); ok && dates[k] {
				m[k] = t.Format(dateLayout)
				continue
			}
			m[k] = scanValue(v)
		}
		out = append(out, Row(m))
	}
	return out, rows.Err()
}

const (
	dateLayout     = "2006-01-02"
	datetimeLayout = "2006-01-02 15:04:05"
)

// scanValue turns driver values into JSON friendly scalars. MySQL hands text
// back as []byte when the text protocol is used. Times keep their clock part
// unless the column is a DATE, which scanRows handles.
func scanValue(v interface{}) interface{} {
	switch t := v.(type) {
	case []byte:
		return string(t)
	case time.Time:
		return t.Format(datetimeLayout)
	}
	return v
}

// normalizeValue converts request values into something every driver can
// bind. JSON bodies are decoded with UseNumber so integers keep precision.
func normalizeValue(v interface{}) interface{} {
	switch t := v.(type) {
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return n
		}
		return cast.ToFloat64(t.String())
	case float64:
		if t == float64(int64(t)) {
			return int64(t)
		}
		return t
	case map[string]interface{}, []interface{}:
		b, _ := json.Marshal(t)
		return string(b)
	}
	return v
}

func toString(v interface{}) string {
	return cast.ToString(scanValue(v))
}
