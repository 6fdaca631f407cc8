package adapter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/leapstack-labs/playlake/pkg/core"
)

func TestFingerprint(t *testing.T) {
	start := time.Date(2018, 11, 2, 1, 25, 34, 796_000_000, time.UTC)
	build := func() *core.Table {
		return core.TimeTable([]core.TimeRow{
			{StartTime: start, Hour: 1, Day: 2, Week: 44, Month: 11, Year: 2018, Weekday: 6},
			{StartTime: start.Add(time.Hour), Hour: 2, Day: 2, Week: 44, Month: 11, Year: 2018, Weekday: 6},
		})
	}

	a := Fingerprint(build())
	assert.Len(t, a, 32)
	assert.Equal(t, a, Fingerprint(build()), "same rows hash the same")

	ny, _ := time.LoadLocation("America/New_York")
	shifted := build()
	shifted.Rows[0][0] = start.In(ny)
	assert.Equal(t, a, Fingerprint(shifted), "instant, not zone, is hashed")

	changed := build()
	changed.Rows[1][1] = int32(3)
	assert.NotEqual(t, a, Fingerprint(changed))

	nulls := core.ArtistsTable([]core.Artist{{ArtistID: "AR1", Name: ""}})
	other := core.ArtistsTable([]core.Artist{{ArtistID: "AR1"}})
	other.Rows[0][2] = ""
	assert.NotEqual(t, Fingerprint(nulls), Fingerprint(other), "NULL differs from empty string")

	empty := &core.Table{Name: "users", Columns: core.UserColumns}
	assert.NotEqual(t, Fingerprint(empty), Fingerprint(&core.Table{Name: "artists", Columns: core.ArtistColumns}))
}
