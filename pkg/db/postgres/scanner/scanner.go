// Package scanner maps rows of pgx into structs.
package scanner

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgtype"
	"github.com/jackc/pgx/v4"
)

type Queryer interface {
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
}

// type-safe scanner for pgx.Rows
//
// # example
//
//	type Contig struct {
//		Ucsc      string
//		Seqlength int64
//	}
//
//	func GetContigs(ctx context.Context, conn pgx.Conn) ([]Contig, error) {
//		return scanner.New[Contig]().QueryAll(ctx, conn, `select "ucsc", "seqlength" from "chrmap"`)
//	}
//
// # mapping rule
//
//	columns are mapped into
//
//		1. field with tag `sql:"column_name"`
//		2. or, field named as same as the column name (use `as "FieldName"` in query)
//		3. or, field which has a name in CamelCase version of column name.
//
// Fields promoted from embedded structs are mapped as well.
type Scanner[T any] interface {
	// scan all rows in pgx.Rows and convert to []T
	ScanAll(pgx.Rows) ([]T, error)

	// scan all rows in response of query.
	QueryAll(context.Context, Queryer, string, ...interface{}) ([]T, error)

	// scan the only row in response of query.
	//
	// If there are no rows, returns pgx.ErrNoRows.
	QueryOne(context.Context, Queryer, string, ...interface{}) (T, error)
}

type scanner[T any] struct {
	mapByTag       map[string]reflect.StructField
	mapByFieldName map[string]reflect.StructField
	mux            sync.Mutex
}

func New[T any]() Scanner[T] {
	tval := reflect.TypeOf(*new(T))

	// special case: timestamp or bytes columns
	if tval.AssignableTo(reflect.TypeOf(time.Time{})) || tval.AssignableTo(reflect.TypeOf([]byte{})) {
		return &singleColumnScanner[T]{}
	}

	switch tval.Kind() {
	case
		reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Float32, reflect.Float64,
		reflect.String:
		return &singleColumnScanner[T]{}
	}

	mapByTag := map[string]reflect.StructField{}
	mapByFieldName := map[string]reflect.StructField{}
	for _, f := range reflect.VisibleFields(tval) {
		if f.Anonymous || !f.IsExported() {
			continue
		}
		if _, ok := mapByFieldName[f.Name]; !ok {
			mapByFieldName[f.Name] = f
		}
		if tag, ok := f.Tag.Lookup("sql"); ok {
			mapByTag[tag] = f
		}
	}

	return &scanner[T]{mapByTag: mapByTag, mapByFieldName: mapByFieldName}
}

func camel(s string) string {
	b := &strings.Builder{}
	for _, ss := range strings.Split(s, "_") {
		if len(ss) == 0 {
			b.WriteString("_")
			continue
		}
		b.WriteString(strings.ToUpper(ss[0:1]))
		b.WriteString(ss[1:])
	}
	return b.String()
}

func (s *scanner[T]) ScanAll(rows pgx.Rows) ([]T, error) {
	s.mux.Lock()
	defer s.mux.Unlock()

	sqlColumns := rows.FieldDescriptions()
	fields := make([]reflect.StructField, 0, len(sqlColumns))
	for _, fd := range sqlColumns {
		col := string(fd.Name)

		var field reflect.StructField
		if f, ok := s.mapByTag[col]; ok {
			field = f
		} else if f, ok := s.mapByFieldName[col]; ok {
			field = f
		} else if f, ok := s.mapByFieldName[camel(col)]; ok {
			field = f
		} else {
			return nil, fmt.Errorf(
				`field for column "%s" (%s) is not found in type "%T"`,
				col, pgOID2String(fd.DataTypeOID), *new(T),
			)
		}
		fields = append(fields, field)
	}

	ret := []T{}
	for rows.Next() {
		elem := new(T)
		re := reflect.ValueOf(elem).Elem()

		dest := make([]interface{}, len(fields))
		for nth, f := range fields {
			dest[nth] = re.FieldByIndex(f.Index).Addr().Interface()
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		ret = append(ret, *elem)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ret, nil
}

func (s *scanner[T]) QueryAll(ctx context.Context, conn Queryer, q string, params ...interface{}) ([]T, error) {
	rows, err := conn.Query(ctx, q, params...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return s.ScanAll(rows)
}

func (s *scanner[T]) QueryOne(ctx context.Context, conn Queryer, q string, params ...interface{}) (T, error) {
	return queryOne[T](ctx, s, conn, q, params...)
}

type singleColumnScanner[T any] struct{}

func (s *singleColumnScanner[T]) ScanAll(rows pgx.Rows) ([]T, error) {
	if cols := rows.FieldDescriptions(); len(cols) != 1 {
		return nil, fmt.Errorf(`too much columns for %T: %d`, *new(T), len(cols))
	}

	ret := []T{}
	for rows.Next() {
		elem := new(T)
		if err := rows.Scan(elem); err != nil {
			return nil, err
		}
		ret = append(ret, *elem)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ret, nil
}

func (s *singleColumnScanner[T]) QueryAll(ctx context.Context, conn Queryer, q string, params ...interface{}) ([]T, error) {
	rows, err := conn.Query(ctx, q, params...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return s.ScanAll(rows)
}

func (s *singleColumnScanner[T]) QueryOne(ctx context.Context, conn Queryer, q string, params ...interface{}) (T, error) {
	return queryOne[T](ctx, s, conn, q, params...)
}

func queryOne[T any](ctx context.Context, s Scanner[T], conn Queryer, q string, params ...interface{}) (T, error) {
	all, err := s.QueryAll(ctx, conn, q, params...)
	if err != nil {
		return *new(T), err
	}
	if len(all) == 0 {
		return *new(T), pgx.ErrNoRows
	}
	return all[0], nil
}

func pgOID2String(oid uint32) string {
	switch oid {
	case pgtype.BoolOID:
		return "bool"
	case pgtype.Int8OID:
		return "int8"
	case pgtype.Int4OID:
		return "int4"
	case pgtype.TextOID:
		return "text"
	case pgtype.VarcharOID:
		return "varchar"
	case pgtype.Float8OID:
		return "float8"
	case pgtype.TimestamptzOID:
		return "timestamptz"
	case pgtype.UUIDOID:
		return "uuid"
	case pgtype.JSONBOID:
		return "jsonb"
	default:
		return fmt.Sprintf("oid:%d", oid)
	}
}
