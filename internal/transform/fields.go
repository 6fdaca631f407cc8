package transform

import (
	"database/sql"
	"errors"
	"fmt"
	"math"

	"github.com/leapstack-labs/playlake/pkg/core"
)

// fieldReader decodes fields of one record and remembers the first failure,
// so a projection reads as a flat list of assignments.
type fieldReader struct {
	source string
	index  int
	rec    core.Record
	err    error
}

func newFieldReader(source string, index int, rec core.Record) *fieldReader {
	return &fieldReader{source: source, index: index, rec: rec}
}

func (f *fieldReader) fail(field string, err error) {
	if f.err != nil {
		return
	}
	if errors.Is(err, core.ErrMissingField) {
		f.err = &core.IngestionError{Source: f.source, Record: f.index, Field: field, Reason: "missing required field"}
		return
	}
	f.err = &core.IngestionError{Source: f.source, Record: f.index, Field: field, Reason: "invalid value", Err: err}
}

func (f *fieldReader) str(field string) string {
	v, err := f.rec.String(field)
	if err != nil {
		f.fail(field, err)
	}
	return v
}

func (f *fieldReader) bigint(field string) int64 {
	v, err := f.rec.Int64(field)
	if err != nil {
		f.fail(field, err)
	}
	return v
}

func (f *fieldReader) integer(field string) int32 {
	v := f.bigint(field)
	if v < math.MinInt32 || v > math.MaxInt32 {
		f.fail(field, fmt.Errorf("%d out of range for INTEGER", v))
		return 0
	}
	return int32(v)
}

func (f *fieldReader) float(field string) float64 {
	v, err := f.rec.Float64(field)
	if err != nil {
		f.fail(field, err)
	}
	return v
}

func (f *fieldReader) optStr(field string) sql.NullString {
	v, err := f.rec.OptionalString(field)
	if err != nil {
		f.fail(field, err)
	}
	return v
}

func (f *fieldReader) optFloat(field string) sql.NullFloat64 {
	v, err := f.rec.OptionalFloat64(field)
	if err != nil {
		f.fail(field, err)
	}
	return v
}
