package event

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duskwing/skylight/internal/shard"
)

func TestKindWireCodesStable(t *testing.T) {
	// Codes are persisted by the store; renumbering breaks existing rows.
	assert.Equal(t, Kind(0), DailyReset)
	assert.Equal(t, Kind(3), Dragon)
	assert.Equal(t, Kind(7), ShardRegular)
	assert.Equal(t, Kind(8), ShardStrong)
	assert.Equal(t, Kind(12), TravellingSpirit)
	assert.Len(t, Kinds, 13)
	for i, k := range Kinds {
		assert.Equal(t, Kind(i), k)
	}
}

func TestBodyLeadZeroVersusLeadTime(t *testing.T) {
	start := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	o := New(DailyReset, start, 0)
	assert.Equal(t, "It's a new day. Time to forge candles again!", o.Body())

	o = New(DailyReset, start, 15)
	assert.Equal(t, fmt.Sprintf("A new day will begin in <t:%d:R>!", start.Unix()), o.Body())
}

func TestBodyShardCarriesEruption(t *testing.T) {
	loc, err := time.LoadLocation("America/Los_Angeles")
	require.NoError(t, err)

	e := shard.New("https://cdn.example.com").ForDate(time.Date(2024, 3, 1, 0, 0, 0, 0, loc))
	require.NotNil(t, e)
	require.True(t, e.Strong)

	o := NewShard(e, e.Windows[0], 10)
	assert.Equal(t, ShardStrong, o.Kind)
	assert.Equal(t, e.Windows[0].Start, o.Start)
	assert.Equal(t, e.Windows[0].End, o.End)
	assert.Contains(t, o.Body(), "strong shard eruption")
	assert.Contains(t, o.Body(), "Daylight Prairie")
	assert.Contains(t, o.Body(), e.URL)

	o = NewShard(e, e.Windows[0], 0)
	assert.Contains(t, o.Body(), "is landing")
}

func TestBodySpirit(t *testing.T) {
	start := time.Date(2024, 9, 12, 0, 0, 0, 0, time.UTC)
	o := NewSpirit("Saluting Protector", start, 0)
	assert.Equal(t, "Saluting Protector has arrived!", o.Body())

	o = NewSpirit("Saluting Protector", start, 15)
	assert.Equal(t, fmt.Sprintf("Saluting Protector will arrive <t:%d:R>!", start.Unix()), o.Body())
}
