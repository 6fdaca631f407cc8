package core

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRecord_FoldsKeyCase(t *testing.T) {
	r := NewRecord(map[string]any{"userID": "39", "firstName": "Ada"})

	id, err := r.String("userId")
	require.NoError(t, err)
	assert.Equal(t, "39", id)

	name, err := r.String("FIRSTNAME")
	require.NoError(t, err)
	assert.Equal(t, "Ada", name)
}

func TestRecord_String(t *testing.T) {
	tests := []struct {
		name    string
		value   any
		want    string
		wantErr error
	}{
		{name: "string", value: "abc", want: "abc"},
		{name: "empty string is present", value: "", want: ""},
		{name: "int64 id", value: int64(42), want: "42"},
		{name: "integral float", value: float64(7), want: "7"},
		{name: "null", value: nil, wantErr: ErrMissingField},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Record{"f": tt.value}.String("f")
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := Record{"f": 1.5}.String("f")
	var typeErr *FieldTypeError
	assert.ErrorAs(t, err, &typeErr)

	_, err = Record{}.String("missing")
	assert.ErrorIs(t, err, ErrMissingField)
}

func TestRecord_Int64(t *testing.T) {
	tests := []struct {
		name   string
		value  any
		want   int64
		errMsg string
	}{
		{name: "int64", value: int64(1541121934796), want: 1541121934796},
		{name: "int32", value: int32(12), want: 12},
		{name: "integral float", value: 1541121934796.0, want: 1541121934796},
		{name: "numeric string", value: " 123 ", want: 123},
		{name: "json number", value: json.Number("99"), want: 99},
		{name: "fractional float", value: 1.25, errMsg: "expected integer"},
		{name: "garbage string", value: "soon", errMsg: "expected integer"},
		{name: "bool", value: true, errMsg: "expected integer"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Record{"ts": tt.value}.Int64("ts")
			if tt.errMsg != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRecord_Float64(t *testing.T) {
	f, err := Record{"duration": 218.93179}.Float64("duration")
	require.NoError(t, err)
	assert.InDelta(t, 218.93179, f, 1e-9)

	f, err = Record{"duration": int64(200)}.Float64("duration")
	require.NoError(t, err)
	assert.Equal(t, 200.0, f)

	_, err = Record{"duration": "long"}.Float64("duration")
	assert.Error(t, err)
}

func TestRecord_Optional(t *testing.T) {
	r := Record{"artist_location": nil, "artist_latitude": 35.14968}

	loc, err := r.OptionalString("artist_location")
	require.NoError(t, err)
	assert.False(t, loc.Valid)

	lat, err := r.OptionalFloat64("artist_latitude")
	require.NoError(t, err)
	assert.True(t, lat.Valid)
	assert.InDelta(t, 35.14968, lat.Float64, 1e-9)

	lon, err := r.OptionalFloat64("artist_longitude")
	require.NoError(t, err)
	assert.False(t, lon.Valid)

	_, err = Record{"artist_latitude": "north"}.OptionalFloat64("artist_latitude")
	assert.Error(t, err)
}

func TestRecord_Time(t *testing.T) {
	ts := time.Date(2018, 11, 2, 1, 25, 34, 796_000_000, time.UTC)
	got, err := Record{"start_time": ts}.Time("start_time")
	require.NoError(t, err)
	assert.True(t, ts.Equal(got))

	_, err = Record{"start_time": "2018-11-02"}.Time("start_time")
	assert.Error(t, err)
}

func TestRecordSet_Len(t *testing.T) {
	var rs *RecordSet
	assert.Equal(t, 0, rs.Len())
	assert.Equal(t, 2, (&RecordSet{Records: []Record{{}, {}}}).Len())
}
