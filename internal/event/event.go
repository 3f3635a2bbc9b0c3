// Package event defines the closed set of in-game event kinds, the
// ephemeral due-occurrence record the scheduler produces each tick, and the
// per-kind alert messages.
//
// Kinds carry fixed wire codes matching the `type` column of the
// subscriptions table. Adding a kind means a new constant, one predicate in
// the schedule package, and one message template here.
package event

import (
	"fmt"
	"time"

	"github.com/duskwing/skylight/internal/shard"
)

// Kind identifies one in-game event. The numeric values are persisted by the
// backing store and must not be renumbered.
type Kind int16

const (
	DailyReset Kind = iota
	EdenReset
	InternationalSpaceStation
	// Dragon is retained for stored rows but currently has no predicate, so
	// it never becomes due.
	Dragon
	PollutedGeyser
	Grandma
	Turtle
	ShardRegular
	ShardStrong
	Aurora
	Passage
	AviaryFireworkFestival
	TravellingSpirit
)

// Kinds lists every kind in wire-code order.
var Kinds = []Kind{
	DailyReset, EdenReset, InternationalSpaceStation, Dragon,
	PollutedGeyser, Grandma, Turtle, ShardRegular, ShardStrong,
	Aurora, Passage, AviaryFireworkFestival, TravellingSpirit,
}

func (k Kind) String() string {
	switch k {
	case DailyReset:
		return "daily_reset"
	case EdenReset:
		return "eden_reset"
	case InternationalSpaceStation:
		return "international_space_station"
	case Dragon:
		return "dragon"
	case PollutedGeyser:
		return "polluted_geyser"
	case Grandma:
		return "grandma"
	case Turtle:
		return "turtle"
	case ShardRegular:
		return "shard_regular"
	case ShardStrong:
		return "shard_strong"
	case Aurora:
		return "aurora"
	case Passage:
		return "passage"
	case AviaryFireworkFestival:
		return "aviary_firework_festival"
	case TravellingSpirit:
		return "travelling_spirit"
	default:
		return fmt.Sprintf("kind(%d)", int16(k))
	}
}

// Occurrence is one due event computed by the scheduler: the event is
// happening now (Lead == 0) or starts in Lead minutes. Occurrences are
// produced fresh each tick, consumed once by the dispatcher, and discarded.
type Occurrence struct {
	Kind       Kind
	Start      time.Time
	End        time.Time // zero unless the kind has a bounded window
	Lead       int       // whole minutes until Start
	Shard      *shard.Eruption
	SpiritName string
}

// New builds an occurrence without kind-specific payload.
func New(kind Kind, start time.Time, lead int) Occurrence {
	return Occurrence{Kind: kind, Start: start, Lead: lead}
}

// NewShard builds a shard occurrence. The kind follows the eruption's
// strength; the window supplies both start and clearing time.
func NewShard(e *shard.Eruption, w shard.Window, lead int) Occurrence {
	kind := ShardRegular
	if e.Strong {
		kind = ShardStrong
	}
	return Occurrence{Kind: kind, Start: w.Start, End: w.End, Lead: lead, Shard: e}
}

// NewSpirit builds a travelling-spirit occurrence.
func NewSpirit(name string, start time.Time, lead int) Occurrence {
	return Occurrence{Kind: TravellingSpirit, Start: start, Lead: lead, SpiritName: name}
}
