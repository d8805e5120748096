package crudgrid

import (
	"context"
	"database/sql"
	"sort"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"golang.org/x/sync/errgroup"

	"github.com/gnemet/crudgrid/database/connpool"
	"github.com/gnemet/crudgrid/internal/logger"
)

// PageSize is the fixed number of rows returned per page.
const PageSize = 100

// Store is the data access layer. It owns the shared database handle for the
// lifetime of the process; every identifier it interpolates has passed the
// registry whitelist or the field grammar and every value is bound.
type Store struct {
	db       *sqlx.DB
	dialect  connpool.Dialect
	registry *Registry
	log      logger.LoggerI
	sb       sq.StatementBuilderType
}

func NewStore(db *sqlx.DB, dialect connpool.Dialect, registry *Registry, log logger.LoggerI) *Store {
	return &Store{
		db:       db,
		dialect:  dialect,
		registry: registry,
		log:      log,
		sb:       sq.StatementBuilder.PlaceholderFormat(dialect.Placeholder()),
	}
}

// Registry returns the registry the store validates against.
func (s *Store) Registry() *Registry { return s.registry }

// Query selects one page of a table.
type Query struct {
	Table  string
	Fields []string
	Where  *string
	// Page is 1-based; zero or less means the first page.
	Page int
}

func (s *Store) quote(ident string) string {
	return s.dialect.Quote(ident)
}

// FetchFields reads the column metadata of table and classifies every column.
// Dropdown items are resolved concurrently and are complete on return. A
// non-empty fields list narrows the result to those columns.
func (s *Store) FetchFields(ctx context.Context, table string, fields []string) ([]Field, error) {
	table, err := s.registry.ValidateTable(table)
	if err != nil {
		return nil, err
	}

	var only map[string]struct{}
	if len(fields) > 0 {
		only = make(map[string]struct{}, len(fields))
		for _, f := range fields {
			p, err := ParseField(f)
			if err != nil {
				return nil, err
			}
			only[p.Column] = struct{}{}
		}
	}

	cols, err := s.columns(ctx, table)
	if err != nil {
		return nil, err
	}

	out := make([]Field, 0, len(cols))
	for _, c := range cols {
		if only != nil {
			if _, ok := only[c.Name]; !ok {
				continue
			}
		}
		out = append(out, ClassifyColumn(c))
	}

	g, gctx := errgroup.WithContext(ctx)
	for i := range out {
		if out[i].Type != FieldDropdown {
			continue
		}
		i := i
		g.Go(func() error {
			items, err := s.dropdownItems(gctx, out[i].Name)
			if err != nil {
				return err
			}
			out[i].Items = items
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// FetchData returns one page of rows. Each row carries the total number of
// rows matching the filter in its "count" column.
func (s *Store) FetchData(ctx context.Context, q Query) ([]Row, error) {
	table, err := s.registry.ValidateTable(q.Table)
	if err != nil {
		return nil, err
	}
	where, err := ParseWhere(q.Where)
	if err != nil {
		return nil, err
	}
	cols, err := s.projection(q.Fields)
	if err != nil {
		return nil, err
	}

	// The nested select keeps "?" placeholders; the outer builder numbers
	// them together with its own.
	count := sq.Select("COUNT(" + s.quote("id") + ")").From(s.quote(table))
	stmt := s.sb.Select(cols...).
		Column(sq.Alias(s.filter(count, where), CountColumn)).
		From(s.quote(table))
	stmt = s.filter(stmt, where).
		OrderBy(s.quote("id")).
		Limit(PageSize)
	if q.Page > 1 {
		stmt = stmt.Offset(uint64(q.Page-1) * PageSize)
	}

	return s.selectRows(ctx, "fetch data", stmt)
}

// FetchDistinct returns the distinct combinations of fields in table.
func (s *Store) FetchDistinct(ctx context.Context, table string, fields []string, clause *string) ([]Row, error) {
	table, err := s.registry.ValidateTable(table)
	if err != nil {
		return nil, err
	}
	where, err := ParseWhere(clause)
	if err != nil {
		return nil, err
	}
	cols, err := s.projection(fields)
	if err != nil {
		return nil, err
	}

	stmt := s.filter(s.sb.Select(cols...).Distinct().From(s.quote(table)), where)
	return s.selectRows(ctx, "fetch distinct", stmt)
}

// AddData inserts data into table and returns the generated id. An id key in
// data is ignored.
func (s *Store) AddData(ctx context.Context, table string, data map[string]interface{}) (int64, error) {
	table, err := s.registry.ValidateTable(table)
	if err != nil {
		return 0, err
	}
	names, values, err := s.assignments(data)
	if err != nil {
		return 0, err
	}

	stmt := s.sb.Insert(s.quote(table)).Columns(names...).Values(values...)

	if s.dialect == connpool.Postgres {
		query, args, err := stmt.Suffix("RETURNING " + s.quote("id")).ToSql()
		if err != nil {
			return 0, invalidFormat("insert into %s: %v", table, err)
		}
		s.debug(query, args)
		var id int64
		if err := s.db.QueryRowxContext(ctx, query, args...).Scan(&id); err != nil {
			return 0, dataAccess("add data", err)
		}
		return id, nil
	}

	res, err := s.exec(ctx, "add data", stmt)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, dataAccess("add data", err)
	}
	return id, nil
}

// UpdateData sets the columns in data on the row with the given id. The id
// column itself is never updated.
func (s *Store) UpdateData(ctx context.Context, table string, id interface{}, data map[string]interface{}) (int64, error) {
	table, err := s.registry.ValidateTable(table)
	if err != nil {
		return 0, err
	}
	rowID, err := ValidateID(id)
	if err != nil {
		return 0, err
	}
	names, values, err := s.assignments(data)
	if err != nil {
		return 0, err
	}

	stmt := s.sb.Update(s.quote(table)).Where(sq.Eq{s.quote("id"): rowID})
	for i, n := range names {
		stmt = stmt.Set(n, values[i])
	}

	res, err := s.exec(ctx, "update data", stmt)
	if err != nil {
		return 0, err
	}
	return rowID, s.affected(res, "update data", table, rowID)
}

// DeleteData removes the row with the given id.
func (s *Store) DeleteData(ctx context.Context, table string, id interface{}) (int64, error) {
	table, err := s.registry.ValidateTable(table)
	if err != nil {
		return 0, err
	}
	rowID, err := ValidateID(id)
	if err != nil {
		return 0, err
	}

	stmt := s.sb.Delete(s.quote(table)).Where(sq.Eq{s.quote("id"): rowID})
	res, err := s.exec(ctx, "delete data", stmt)
	if err != nil {
		return 0, err
	}
	return rowID, s.affected(res, "delete data", table, rowID)
}

func (s *Store) affected(res sql.Result, op, table string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return dataAccess(op, err)
	}
	if n == 0 {
		return notFound("%s id %d", table, id)
	}
	return nil
}

// projection renders a validated field list, or * when it is empty.
func (s *Store) projection(fields []string) ([]string, error) {
	if len(fields) == 0 {
		return []string{"*"}, nil
	}
	cols := make([]string, 0, len(fields))
	for _, f := range fields {
		p, err := ParseField(f)
		if err != nil {
			return nil, err
		}
		cols = append(cols, s.column(p))
	}
	return cols, nil
}

// column re-renders a projection with the dialect's identifier quoting so
// aliases survive on databases that treat single quotes as string literals.
func (s *Store) column(p Projection) string {
	if p.Alias == "" {
		return s.quote(p.Column)
	}
	return s.quote(p.Column) + " AS " + s.quote(p.Alias)
}

// assignments validates the keys of data and returns quoted column names
// with their bound values in a stable order. The id key is dropped.
func (s *Store) assignments(data map[string]interface{}) ([]string, []interface{}, error) {
	keys := make([]string, 0, len(data))
	for k := range data {
		if k == "id" {
			continue
		}
		if !identPattern.MatchString(k) {
			return nil, nil, invalidFormat("field %q", k)
		}
		keys = append(keys, k)
	}
	if len(keys) == 0 {
		return nil, nil, invalidFormat("no columns to write")
	}
	sort.Strings(keys)

	names := make([]string, len(keys))
	values := make([]interface{}, len(keys))
	for i, k := range keys {
		names[i] = s.quote(k)
		values[i] = normalizeValue(data[k])
	}
	return names, values, nil
}

func (s *Store) filter(b sq.SelectBuilder, where *Where) sq.SelectBuilder {
	if where == nil {
		return b
	}
	return b.Where(sq.Eq{s.quote(where.Column): where.Value})
}

func (s *Store) selectRows(ctx context.Context, op string, stmt sq.SelectBuilder) ([]Row, error) {
	query, args, err := stmt.ToSql()
	if err != nil {
		return nil, invalidFormat("%s: %v", op, err)
	}
	s.debug(query, args)

	rows, err := s.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, dataAccess(op, err)
	}
	out, err := scanRows(rows)
	if err != nil {
		return nil, dataAccess(op, err)
	}
	return out, nil
}

func (s *Store) exec(ctx context.Context, op string, stmt sq.Sqlizer) (sql.Result, error) {
	query, args, err := stmt.ToSql()
	if err != nil {
		return nil, invalidFormat("%s: %v", op, err)
	}
	s.debug(query, args)

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, dataAccess(op, err)
	}
	return res, nil
}

func (s *Store) debug(query string, args []interface{}) {
	s.log.Debug("sql", logger.String("query", query), logger.Any("args", args))
}
