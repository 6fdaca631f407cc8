package core

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// ErrMissingField is returned by Record accessors when a field is absent or null.
var ErrMissingField = errors.New("missing required field")

// FieldTypeError is returned by Record accessors when a value cannot be
// represented as the requested type.
type FieldTypeError struct {
	Want  string
	Value any
}

func (e *FieldTypeError) Error() string {
	return fmt.Sprintf("expected %s, got %T (%v)", e.Want, e.Value, e.Value)
}

// Record is one raw input record. Keys are lower-cased so that field lookups
// are case-insensitive: "userId" and "userID" name the same field.
type Record map[string]any

// NewRecord builds a Record from a column/value map, folding key case.
func NewRecord(values map[string]any) Record {
	r := make(Record, len(values))
	for k, v := range values {
		r[strings.ToLower(k)] = v
	}
	return r
}

// Get returns the raw value of field and whether it is present and non-null.
func (r Record) Get(field string) (any, bool) {
	v, ok := r[strings.ToLower(field)]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

// String returns field as a string. Integral numbers are formatted in base 10
// so numeric identifiers read from JSON are accepted.
func (r Record) String(field string) (string, error) {
	v, ok := r.Get(field)
	if !ok {
		return "", ErrMissingField
	}
	switch x := v.(type) {
	case string:
		return x, nil
	case []byte:
		return string(x), nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case int32:
		return strconv.FormatInt(int64(x), 10), nil
	case int:
		return strconv.Itoa(x), nil
	case json.Number:
		return x.String(), nil
	case float64:
		if x == math.Trunc(x) && !math.IsInf(x, 0) {
			return strconv.FormatInt(int64(x), 10), nil
		}
	}
	return "", &FieldTypeError{Want: "string", Value: v}
}

// Int64 returns field as an int64. Strings holding base-10 integers and
// floats without a fractional part are accepted.
func (r Record) Int64(field string) (int64, error) {
	v, ok := r.Get(field)
	if !ok {
		return 0, ErrMissingField
	}
	switch x := v.(type) {
	case int64:
		return x, nil
	case int32:
		return int64(x), nil
	case int16:
		return int64(x), nil
	case int8:
		return int64(x), nil
	case int:
		return int64(x), nil
	case uint32:
		return int64(x), nil
	case float64:
		if x == math.Trunc(x) && !math.IsInf(x, 0) && !math.IsNaN(x) {
			return int64(x), nil
		}
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return n, nil
		}
	case string:
		if n, err := strconv.ParseInt(strings.TrimSpace(x), 10, 64); err == nil {
			return n, nil
		}
	}
	return 0, &FieldTypeError{Want: "integer", Value: v}
}

// Float64 returns field as a float64.
func (r Record) Float64(field string) (float64, error) {
	v, ok := r.Get(field)
	if !ok {
		return 0, ErrMissingField
	}
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case int32:
		return float64(x), nil
	case int:
		return float64(x), nil
	case json.Number:
		if f, err := x.Float64(); err == nil {
			return f, nil
		}
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(x), 64); err == nil {
			return f, nil
		}
	}
	return 0, &FieldTypeError{Want: "number", Value: v}
}

// Time returns field as a time.Time. Only native timestamp values are accepted.
func (r Record) Time(field string) (time.Time, error) {
	v, ok := r.Get(field)
	if !ok {
		return time.Time{}, ErrMissingField
	}
	if t, ok := v.(time.Time); ok {
		return t, nil
	}
	return time.Time{}, &FieldTypeError{Want: "timestamp", Value: v}
}

// OptionalString is String for nullable fields: absent or null is not an error.
func (r Record) OptionalString(field string) (sql.NullString, error) {
	if _, ok := r.Get(field); !ok {
		return sql.NullString{}, nil
	}
	s, err := r.String(field)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: s, Valid: true}, nil
}

// OptionalFloat64 is Float64 for nullable fields.
func (r Record) OptionalFloat64(field string) (sql.NullFloat64, error) {
	if _, ok := r.Get(field); !ok {
		return sql.NullFloat64{}, nil
	}
	f, err := r.Float64(field)
	if err != nil {
		return sql.NullFloat64{}, err
	}
	return sql.NullFloat64{Float64: f, Valid: true}, nil
}

// RecordSet is the ordered contents of one logical source (a file tree or a
// persisted table).
type RecordSet struct {
	Source  string
	Records []Record
}

// Len returns the number of records.
func (rs *RecordSet) Len() int {
	if rs == nil {
		return 0
	}
	return len(rs.Records)
}
