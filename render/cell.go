package render

import (
	"regexp"

	"github.com/spf13/cast"

	"github.com/gnemet/crudgrid"
)

var isoDate = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})`)

// FormatCell renders the value of f in row for display. Dropdown values show
// the matching item text, dates are shown as MM/DD/YYYY and the id column is
// never shown as a value.
func FormatCell(f crudgrid.Field, row crudgrid.Row) string {
	if f.Name == "id" {
		return ""
	}
	v, ok := row[f.Name]
	if !ok || v == nil {
		return ""
	}
	raw := cast.ToString(v)

	switch f.InputType() {
	case crudgrid.FieldDropdown:
		for _, it := range f.Items {
			if cast.ToString(it.Value()) == raw {
				return it.Text()
			}
		}
	case crudgrid.FieldDate:
		if m := isoDate.FindStringSubmatch(raw); m != nil {
			return m[2] + "/" + m[3] + "/" + m[1]
		}
	}
	return raw
}
