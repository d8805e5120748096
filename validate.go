package crudgrid

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/spf13/cast"
)

// Table, column and where fragments are interpolated into SQL text, so each
// one has to match one of these grammars exactly.
var (
	identPattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9]*$`)
	aliasPattern = regexp.MustCompile(`^([A-Za-z][A-Za-z0-9]*) (?i:as) '([A-Za-z][A-Za-z0-9-]*)'$`)
	wherePattern = regexp.MustCompile(`^([A-Za-z][A-Za-z0-9]*)=([0-9]+)$`)
)

// ValidateTable returns name unchanged when it is on the table whitelist.
func (r *Registry) ValidateTable(name string) (string, error) {
	if _, ok := r.tables[name]; !ok {
		return "", notAllowed("table %q", name)
	}
	return name, nil
}

// ValidateField accepts a bare identifier or the "column as 'alias'"
// projection used by dropdown queries.
func ValidateField(expr string) (string, error) {
	if identPattern.MatchString(expr) || aliasPattern.MatchString(expr) {
		return expr, nil
	}
	return "", invalidFormat("field %q", expr)
}

// Projection is a validated field expression.
type Projection struct {
	Column string
	Alias  string
}

// ParseField validates expr and splits it into column and optional alias.
func ParseField(expr string) (Projection, error) {
	if identPattern.MatchString(expr) {
		return Projection{Column: expr}, nil
	}
	if m := aliasPattern.FindStringSubmatch(expr); m != nil {
		return Projection{Column: m[1], Alias: m[2]}, nil
	}
	return Projection{}, invalidFormat("field %q", expr)
}

// ValidateWhere lets a nil clause through and otherwise only accepts a single
// "column=integer" predicate.
func ValidateWhere(clause *string) (*string, error) {
	if clause == nil {
		return nil, nil
	}
	if !wherePattern.MatchString(*clause) {
		return nil, invalidFormat("where clause %q", *clause)
	}
	return clause, nil
}

// Where is a validated equality predicate.
type Where struct {
	Column string
	Value  int64
}

// ParseWhere validates clause and returns the predicate so the value can be
// bound as a statement argument. A nil clause yields a nil predicate.
func ParseWhere(clause *string) (*Where, error) {
	if _, err := ValidateWhere(clause); err != nil || clause == nil {
		return nil, err
	}
	m := wherePattern.FindStringSubmatch(*clause)
	v, err := strconv.ParseInt(m[2], 10, 64)
	if err != nil {
		return nil, invalidFormat("where clause %q", *clause)
	}
	return &Where{Column: m[1], Value: v}, nil
}

// ValidateID converts a row identifier from a request into a positive integer.
func ValidateID(id interface{}) (int64, error) {
	var (
		n   int64
		err error
	)
	switch v := id.(type) {
	case string:
		n, err = strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	case json.Number:
		n, err = v.Int64()
	case float64:
		if v != float64(int64(v)) {
			return 0, invalidFormat("id %v", v)
		}
		n = int64(v)
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		n, err = cast.ToInt64E(v)
	default:
		return 0, invalidFormat("id %v", id)
	}
	if err != nil || n <= 0 {
		return 0, invalidFormat("id %v", id)
	}
	return n, nil
}
