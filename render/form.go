package render

import (
	"encoding/json"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cast"

	"github.com/gnemet/crudgrid"
)

// Input kinds rendered by the form template.
const (
	KindText     = "text"
	KindEmail    = "email"
	KindTextarea = "textarea"
	KindNumber   = "number"
	KindDate     = "date"
	KindTime     = "time"
	KindDatetime = "datetime-local"
	KindCheckbox = "checkbox"
	KindSelect   = "select"
)

// textareaThreshold is the column length above which text is edited in a
// textarea.
const textareaThreshold = 255

// Attr is an extra attribute copied onto a select option.
type Attr struct {
	Name  string
	Value string
}

// SelectOption is one entry of a select input.
type SelectOption struct {
	Value    string
	Text     string
	Selected bool
	Attrs    []Attr
}

// Input is one editable field of a form.
type Input struct {
	Name      string
	Label     string
	Kind      string
	Value     string
	Checked   bool
	Required  bool
	MaxLength int
	Step      string
	Options   []SelectOption
}

// Form is the add or edit form of a grid row.
type Form struct {
	Table  string
	ID     int64
	Inputs []Input
}

// IsEdit reports whether the form edits an existing row.
func (f Form) IsEdit() bool { return f.ID > 0 }

// NewForm builds the form for fields. A nil row gives an add form with empty
// values; otherwise the row's values seed an edit form. The id column is
// carried in Form.ID and never rendered as an input.
func NewForm(table string, fields []crudgrid.Field, row crudgrid.Row) Form {
	form := Form{Table: table}
	if row != nil {
		form.ID = row.ID()
	}

	for _, f := range fields {
		if f.Name == "id" {
			continue
		}
		in := Input{
			Name:     f.Name,
			Label:    f.DisplayText,
			Kind:     inputKind(f),
			Required: f.Required,
		}

		var raw interface{}
		if row != nil {
			raw = row[f.Name]
		}
		value := ""
		if raw != nil {
			value = cast.ToString(raw)
		}

		switch in.Kind {
		case KindText, KindEmail, KindTextarea:
			in.MaxLength = f.Length
			in.Value = value
		case KindNumber:
			in.Step = step(f.Decimals)
			in.Value = value
		case KindDate:
			in.Value = truncate(value, len("2006-01-02"))
		case KindTime:
			in.Value = truncate(value, len("15:04:05"))
		case KindDatetime:
			in.Value = strings.Replace(truncate(value, len("2006-01-02 15:04")), " ", "T", 1)
		case KindCheckbox:
			in.Checked = truthy(value)
			in.Required = false
		case KindSelect:
			in.Value = value
			in.Options = options(f.Items, value)
		}
		form.Inputs = append(form.Inputs, in)
	}
	return form
}

// ParseForm converts submitted form values back into column values for
// fields. The id is returned separately and is empty for an add form.
// Blank optional values become NULL.
func ParseForm(fields []crudgrid.Field, values url.Values) (string, map[string]interface{}, error) {
	data := make(map[string]interface{}, len(fields))

	for _, f := range fields {
		if f.Name == "id" {
			continue
		}
		kind := inputKind(f)
		if kind == KindCheckbox {
			if truthy(values.Get(f.Name)) {
				data[f.Name] = 1
			} else {
				data[f.Name] = 0
			}
			continue
		}

		v := strings.TrimSpace(values.Get(f.Name))
		if v == "" {
			if f.Required {
				return "", nil, errors.Errorf("%s is required", f.DisplayText)
			}
			data[f.Name] = nil
			continue
		}

		switch kind {
		case KindNumber:
			if _, err := strconv.ParseFloat(v, 64); err != nil {
				return "", nil, errors.Errorf("%s must be a number", f.DisplayText)
			}
			data[f.Name] = json.Number(v)
		case KindSelect:
			if _, err := strconv.ParseInt(v, 10, 64); err == nil {
				data[f.Name] = json.Number(v)
			} else {
				data[f.Name] = v
			}
		case KindDatetime:
			v = strings.Replace(v, "T", " ", 1)
			if len(v) == len("2006-01-02 15:04") {
				v += ":00"
			}
			data[f.Name] = v
		default:
			data[f.Name] = v
		}
	}
	return strings.TrimSpace(values.Get("id")), data, nil
}

func inputKind(f crudgrid.Field) string {
	switch f.InputType() {
	case crudgrid.FieldNumber:
		return KindNumber
	case crudgrid.FieldDate:
		return KindDate
	case crudgrid.FieldTime:
		return KindTime
	case crudgrid.FieldDatetime:
		return KindDatetime
	case crudgrid.FieldBoolean:
		return KindCheckbox
	case crudgrid.FieldDropdown:
		return KindSelect
	}
	if strings.Contains(strings.ToLower(f.Name), "email") {
		return KindEmail
	}
	if f.Length > textareaThreshold {
		return KindTextarea
	}
	return KindText
}

// step is the smallest increment allowed by the number of decimals.
func step(decimals int) string {
	if decimals <= 0 {
		return ""
	}
	return "." + strings.Repeat("0", decimals-1) + "1"
}

func options(items []crudgrid.Item, selected string) []SelectOption {
	out := make([]SelectOption, 0, len(items))
	for _, it := range items {
		o := SelectOption{
			Value: cast.ToString(it.Value()),
			Text:  it.Text(),
		}
		o.Selected = o.Value == selected
		for k, v := range it {
			if k == "value" || k == "text" {
				continue
			}
			name := strings.ToLower(k)
			if !strings.HasPrefix(name, "data-") {
				name = "data-" + name
			}
			o.Attrs = append(o.Attrs, Attr{Name: name, Value: cast.ToString(v)})
		}
		sort.Slice(o.Attrs, func(i, j int) bool { return o.Attrs[i].Name < o.Attrs[j].Name })
		out = append(out, o)
	}
	return out
}

// truthy accepts the spellings drivers and browsers use for a set flag,
// including the single 0x01 byte MySQL returns for bit(1).
func truthy(s string) bool {
	switch strings.ToLower(s) {
	case "1", "true", "on", "yes", "\x01":
		return true
	}
	return false
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
