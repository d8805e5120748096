package crudgrid

import (
	"context"
	"database/sql"
	"strings"

	"github.com/gnemet/crudgrid/database/connpool"
	"github.com/gnemet/crudgrid/internal/logger"
)

// dropdownItems resolves the option list of a foreign key field. A prefix
// without a registry mapping, or a referenced table without rows, yields an
// empty list rather than an error.
func (s *Store) dropdownItems(ctx context.Context, fieldName string) ([]Item, error) {
	prefix := strings.TrimSuffix(fieldName, foreignKeySuffix)

	projection, ok := s.registry.Dropdown(prefix)
	if !ok {
		s.log.Debug("no dropdown mapping", logger.String("field", fieldName))
		return []Item{}, nil
	}

	table := s.registry.DropdownTable(prefix)
	if _, err := s.registry.ValidateTable(table); err != nil {
		s.log.Warn("dropdown table is not whitelisted",
			logger.String("field", fieldName),
			logger.String("table", table),
		)
		return []Item{}, nil
	}

	fields := make([]string, 0, len(projection))
	for _, c := range projection {
		expr, err := ValidateField(c.Expr())
		if err != nil {
			return nil, err
		}
		fields = append(fields, expr)
	}
	cols, err := s.projection(fields)
	if err != nil {
		return nil, err
	}

	rows, err := s.selectRows(ctx, "fetch dropdown "+prefix, s.sb.Select(cols...).From(s.quote(table)))
	if err != nil {
		return nil, err
	}

	items := make([]Item, len(rows))
	for i, r := range rows {
		items[i] = Item(r)
	}
	return items, nil
}

type columnInfo struct {
	Name     string         `db:"name"`
	Type     string         `db:"type"`
	Nullable string         `db:"nullable"`
	Key      string         `db:"ckey"`
	Default  sql.NullString `db:"dflt"`
}

const (
	mysqlColumns = `SELECT column_name AS name, column_type AS type, is_nullable AS nullable,
	column_key AS ckey, column_default AS dflt
FROM information_schema.columns
WHERE table_schema = DATABASE() AND table_name = ?
ORDER BY ordinal_position`

	sqliteColumns = `SELECT name, type,
	CASE WHEN "notnull" = 1 OR pk > 0 THEN 'NO' ELSE 'YES' END AS nullable,
	CASE WHEN pk > 0 THEN 'PRI' ELSE '' END AS ckey,
	dflt_value AS dflt
FROM pragma_table_info(?)
ORDER BY cid`

	postgresColumns = `SELECT a.attname AS name, format_type(a.atttypid, a.atttypmod) AS type,
	CASE WHEN a.attnotnull THEN 'NO' ELSE 'YES' END AS nullable,
	CASE WHEN EXISTS (
		SELECT 1 FROM pg_index i
		WHERE i.indrelid = a.attrelid AND i.indisprimary AND a.attnum = ANY(i.indkey)
	) THEN 'PRI' ELSE '' END AS ckey,
	pg_get_expr(d.adbin, d.adrelid) AS dflt
FROM pg_attribute a
LEFT JOIN pg_attrdef d ON d.adrelid = a.attrelid AND d.adnum = a.attnum
WHERE a.attrelid = $1::regclass AND a.attnum > 0 AND NOT a.attisdropped
ORDER BY a.attnum`
)

// columns reads the column metadata of a whitelisted table.
func (s *Store) columns(ctx context.Context, table string) ([]Column, error) {
	var (
		query string
		arg   interface{} = table
	)
	switch s.dialect {
	case connpool.MySQL:
		query = mysqlColumns
	case connpool.Postgres:
		query = postgresColumns
		// regclass folds unquoted names to lower case
		arg = s.quote(table)
	default:
		query = sqliteColumns
	}

	var info []columnInfo
	if err := s.db.SelectContext(ctx, &info, query, arg); err != nil {
		return nil, dataAccess("fetch fields", err)
	}

	cols := make([]Column, len(info))
	for i, c := range info {
		cols[i] = Column{
			Name:     c.Name,
			Type:     c.Type,
			Nullable: strings.EqualFold(c.Nullable, "YES"),
			Key:      c.Key,
			Default:  c.Default.String,
		}
	}
	return cols, nil
}
