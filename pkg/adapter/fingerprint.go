package adapter

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/zeebo/xxh3"

	"github.com/leapstack-labs/playlake/pkg/core"
)

// Value tags of the canonical row encoding.
const (
	tagNull byte = iota
	tagString
	tagInt32
	tagInt64
	tagFloat64
	tagTime
	tagOther
)

// Fingerprint returns a 128-bit xxh3 digest of a table's schema and rows in
// their current order. Tables are sorted before writing, so two runs over
// the same inputs produce the same fingerprint.
//
// Timestamps are hashed at microsecond precision in UTC, the precision they
// are stored at.
func Fingerprint(t *core.Table) string {
	h := xxh3.New()
	var buf [9]byte

	writeString := func(tag byte, s string) {
		buf[0] = tag
		binary.LittleEndian.PutUint64(buf[1:], uint64(len(s)))
		_, _ = h.Write(buf[:9])
		_, _ = h.WriteString(s)
	}
	writeUint := func(tag byte, v uint64) {
		buf[0] = tag
		binary.LittleEndian.PutUint64(buf[1:], v)
		_, _ = h.Write(buf[:9])
	}

	writeString(tagString, t.Name)
	for _, c := range t.Columns {
		writeString(tagString, c.Name)
		writeString(tagString, string(c.Type))
	}
	for _, p := range t.PartitionBy {
		writeString(tagString, p)
	}

	for _, row := range t.Rows {
		for _, v := range row {
			switch x := v.(type) {
			case nil:
				_, _ = h.Write([]byte{tagNull})
			case string:
				writeString(tagString, x)
			case int32:
				writeUint(tagInt32, uint64(int64(x)))
			case int64:
				writeUint(tagInt64, uint64(x))
			case float64:
				writeUint(tagFloat64, math.Float64bits(x))
			case time.Time:
				writeUint(tagTime, uint64(x.UTC().UnixMicro()))
			default:
				writeString(tagOther, fmt.Sprint(x))
			}
		}
	}

	sum := h.Sum128()
	return fmt.Sprintf("%016x%016x", sum.Hi, sum.Lo)
}
