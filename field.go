package crudgrid

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// FieldType is the display type the grid and the edit form use for a column.
type FieldType string

const (
	FieldNumber   FieldType = "number"
	FieldText     FieldType = "text"
	FieldDate     FieldType = "date"
	FieldTime     FieldType = "time"
	FieldDatetime FieldType = "datetime"
	FieldBoolean  FieldType = "boolean"
	FieldDropdown FieldType = "dropdown"
)

// foreignKeySuffix marks a column as a reference into a dropdown table.
const foreignKeySuffix = "Id"

// fieldTypes converts database type tokens to display types. MySQL spellings
// come first, the rest are what SQLite and Postgres report for the same schema.
var fieldTypes = map[string]FieldType{
	"int":      FieldNumber,
	"tinyint":  FieldNumber,
	"float":    FieldNumber,
	"double":   FieldNumber,
	"decimal":  FieldNumber,
	"date":     FieldDate,
	"time":     FieldTime,
	"datetime": FieldDatetime,
	"varchar":  FieldText,
	"bigint":   FieldText,
	"bit":      FieldBoolean,
	"nvarchar": FieldText,

	"integer":   FieldNumber,
	"smallint":  FieldNumber,
	"mediumint": FieldNumber,
	"real":      FieldNumber,
	"numeric":   FieldNumber,
	"text":      FieldText,
	"char":      FieldText,
	"character": FieldText,
	"boolean":   FieldBoolean,
	"timestamp": FieldDatetime,
}

// Column is the raw column metadata read from the database.
type Column struct {
	Name     string
	Type     string
	Nullable bool
	Key      string
	Default  string
}

// Item is one dropdown option: value, text and any auxiliary attributes
// (data-* attributes are copied onto the rendered <option>).
type Item map[string]interface{}

// Value returns the option value.
func (i Item) Value() interface{} { return i["value"] }

// Text returns the option label.
func (i Item) Text() string {
	if t, ok := i["text"]; ok && t != nil {
		return toString(t)
	}
	return ""
}

// Field describes how one column is labelled, typed and constrained in the UI.
type Field struct {
	Name        string    `json:"name"`
	DisplayText string    `json:"displayText"`
	Type        FieldType `json:"type,omitempty"`
	Length      int       `json:"length,omitempty"`
	Decimals    int       `json:"decimals,omitempty"`
	Required    bool      `json:"required"`
	Items       []Item    `json:"items,omitempty"`
}

// MarshalJSON always writes items for dropdown fields, even when empty.
func (f Field) MarshalJSON() ([]byte, error) {
	type alias Field
	if f.Type != FieldDropdown {
		return json.Marshal(alias(f))
	}
	items := f.Items
	if items == nil {
		items = []Item{}
	}
	return json.Marshal(struct {
		alias
		Items []Item `json:"items"`
	}{alias(f), items})
}

// InputType is the type used for rendering; unmapped columns render as text.
func (f Field) InputType() FieldType {
	if f.Type == "" {
		return FieldText
	}
	return f.Type
}

// IsForeignKey reports whether the column name carries the foreign key suffix.
func IsForeignKey(name string) bool {
	return len(name) > len(foreignKeySuffix) && strings.HasSuffix(name, foreignKeySuffix)
}

// ClassifyColumn converts raw column metadata into a Field. Dropdown items are
// left empty here; the store resolves them.
func ClassifyColumn(col Column) Field {
	f := Field{
		Name:        col.Name,
		DisplayText: CamelCaseToLabel(col.Name),
		Required:    !col.Nullable,
	}

	base, args, qualifier := splitType(col.Type)
	f.Type = fieldTypes[base]

	if len(args) > 0 {
		f.Length, _ = strconv.Atoi(args[0])
		if len(args) > 1 {
			f.Decimals, _ = strconv.Atoi(args[1])
		}
	} else if qualifier != "" {
		if n, err := strconv.Atoi(qualifier); err == nil {
			f.Length = n
		}
	}

	if IsForeignKey(col.Name) {
		f.Type = FieldDropdown
		f.DisplayText = CamelCaseToLabel(strings.TrimSuffix(col.Name, foreignKeySuffix))
		f.Items = []Item{}
	}
	return f
}

// splitType breaks "decimal(10,2)" into ("decimal", ["10","2"], "") and
// "double 8" into ("double", nil, "8").
func splitType(raw string) (base string, args []string, qualifier string) {
	t := strings.ToLower(strings.TrimSpace(raw))
	cut := len(t)
	if i := strings.IndexAny(t, "( "); i >= 0 {
		cut = i
	}
	base = t[:cut]

	if open := strings.IndexByte(t, '('); open >= 0 {
		if end := strings.IndexByte(t[open:], ')'); end > 0 {
			for _, a := range strings.Split(t[open+1:open+end], ",") {
				args = append(args, strings.TrimSpace(a))
			}
		}
		return base, args, ""
	}

	if sp := strings.IndexByte(t, ' '); sp >= 0 {
		if rest := strings.Fields(t[sp+1:]); len(rest) > 0 {
			qualifier = rest[0]
		}
	}
	return base, nil, qualifier
}

var lastCapital = regexp.MustCompile(`^(.*)([A-Z])(.*)$`)

// CamelCaseToLabel turns a camel case column or table name into a label:
// one space goes before the last upper-case letter, the first letter is
// capitalised and a trailing plural is dropped ("companies" -> "Company").
func CamelCaseToLabel(s string) string {
	if s == "" {
		return s
	}

	if m := lastCapital.FindStringSubmatchIndex(s); m != nil && m[4] > 0 {
		s = s[:m[4]] + " " + s[m[4]:]
	}

	r, size := utf8.DecodeRuneInString(s)
	s = string(unicode.ToUpper(r)) + s[size:]

	if strings.HasSuffix(s, "s") {
		if strings.HasSuffix(s, "ies") {
			s = strings.TrimSuffix(s, "ies") + "y"
		} else {
			s = strings.TrimSuffix(s, "s")
		}
	}
	return s
}
