package schedule

import (
	"time"

	"github.com/duskwing/skylight/internal/event"
	"github.com/duskwing/skylight/internal/shard"
	"github.com/duskwing/skylight/internal/spirit"
)

// Moment is one tick's view of the world: the wall clock at minute
// resolution in the game's timezone plus the per-day state the scheduler
// refreshes at local midnight.
type Moment struct {
	Now     time.Time
	Day     int
	Hour    int
	Minute  int
	Weekday time.Weekday
	LastDay int // last day of the current month

	Shard  *shard.Eruption // today's eruption, nil on blackout days
	Spirit *spirit.Visit   // latest known visit, nil if unavailable
}

// MomentAt derives a Moment from a wall-clock instant. State fields are left
// for the caller.
func MomentAt(now time.Time) Moment {
	now = now.Truncate(time.Minute)
	return Moment{
		Now:     now,
		Day:     now.Day(),
		Hour:    now.Hour(),
		Minute:  now.Minute(),
		Weekday: now.Weekday(),
		LastDay: lastDayOfMonth(now),
	}
}

func lastDayOfMonth(t time.Time) int {
	// Day zero of the next month is the last day of this one.
	return time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, t.Location()).Day()
}

// Predicate is one event kind's due-ness rule. Eval returns zero or more
// occurrences for the given tick; it must be pure.
type Predicate struct {
	Name string
	Eval func(m Moment) []event.Occurrence
}

// Days of the month the International Space Station opens, and the preceding
// days whose final quarter hour carries the lead-up announcements.
var (
	issOpenDays  = [4]int{6, 14, 22, 30}
	issPriorDays = [4]int{5, 13, 21, 29}
)

const (
	shardNoticeMinutes  = 10
	spiritNoticeMinutes = 15
)

// Predicates returns the fixed rule set, one entry per active event kind.
// Dragon has no entry: its rule is retired but the kind's wire code remains
// reserved.
func Predicates() []Predicate {
	return []Predicate{
		{"daily_reset", dailyReset},
		{"eden_reset", edenReset},
		{"international_space_station", spaceStation},
		{"polluted_geyser", pollutedGeyser},
		{"grandma", grandma},
		{"turtle", turtle},
		{"shard_eruption", shardEruption},
		{"aurora", aurora},
		{"passage", passage},
		{"aviary_firework_festival", aviaryFestival},
		{"travelling_spirit", travellingSpirit},
	}
}

// one wraps a single occurrence whose start is lead minutes past now.
func one(m Moment, kind event.Kind, lead int) []event.Occurrence {
	start := m.Now.Add(time.Duration(lead) * time.Minute)
	return []event.Occurrence{event.New(kind, start, lead)}
}

// toNextHour is the lead time to the upcoming top of the hour; zero exactly
// on the boundary so the same occurrence never fires twice.
func toNextHour(minute int) int {
	return (60 - minute) % 60
}

func dailyReset(m Moment) []event.Occurrence {
	if (m.Hour == 23 && m.Minute >= 45) || (m.Hour == 0 && m.Minute == 0) {
		return one(m, event.DailyReset, toNextHour(m.Minute))
	}
	return nil
}

func edenReset(m Moment) []event.Occurrence {
	if (m.Weekday == time.Saturday && m.Hour == 23 && m.Minute >= 36) ||
		(m.Weekday == time.Sunday && m.Hour == 0 && m.Minute == 0) {
		return one(m, event.EdenReset, toNextHour(m.Minute))
	}
	return nil
}

func spaceStation(m Moment) []event.Occurrence {
	if (containsDay(issPriorDays, m.Day) && m.Hour == 23 && m.Minute >= 45) ||
		(containsDay(issOpenDays, m.Day) && m.Hour == 0 && m.Minute == 0) {
		return one(m, event.InternationalSpaceStation, toNextHour(m.Minute))
	}
	return nil
}

func containsDay(days [4]int, day int) bool {
	for _, d := range days {
		if d == day {
			return true
		}
	}
	return false
}

func pollutedGeyser(m Moment) []event.Occurrence {
	// Erupts five past every even hour.
	if m.Hour%2 == 0 && m.Minute <= 5 {
		return one(m, event.PollutedGeyser, 5-m.Minute)
	}
	if m.Hour%2 == 1 && m.Minute >= 55 {
		return one(m, event.PollutedGeyser, 65-m.Minute)
	}
	return nil
}

func grandma(m Moment) []event.Occurrence {
	if m.Hour%2 == 0 && m.Minute >= 25 && m.Minute <= 35 {
		return one(m, event.Grandma, 35-m.Minute)
	}
	return nil
}

func turtle(m Moment) []event.Occurrence {
	if m.Hour%2 == 0 && m.Minute >= 40 && m.Minute <= 50 {
		return one(m, event.Turtle, 50-m.Minute)
	}
	return nil
}

func aurora(m Moment) []event.Occurrence {
	// Concert at the top of every even hour.
	if (m.Hour%2 == 1 && m.Minute >= 45) || (m.Hour%2 == 0 && m.Minute == 0) {
		return one(m, event.Aurora, toNextHour(m.Minute))
	}
	return nil
}

func passage(m Moment) []event.Occurrence {
	// Quarter-hourly quests, announced from five minutes out.
	active := m.Minute == 0 ||
		(m.Minute >= 10 && m.Minute <= 15) ||
		(m.Minute >= 25 && m.Minute <= 30) ||
		(m.Minute >= 40 && m.Minute <= 45) ||
		(m.Minute >= 55 && m.Minute <= 59)
	if !active {
		return nil
	}
	lead := 15 - (m.Minute % 15)
	if lead == 15 {
		lead = 0
	}
	return one(m, event.Passage, lead)
}

func aviaryFestival(m Moment) []event.Occurrence {
	// Every four hours on the first of the month; the lead-up to the first
	// show starts in the final quarter hour of the previous month.
	onDay := m.Day == 1 &&
		((m.Hour%4 == 0 && m.Minute == 0) || (m.Hour%4 == 3 && m.Minute >= 45))
	monthEnd := m.Day == m.LastDay && m.Hour == 23 && m.Minute >= 45
	if onDay || monthEnd {
		return one(m, event.AviaryFireworkFestival, toNextHour(m.Minute))
	}
	return nil
}

func shardEruption(m Moment) []event.Occurrence {
	if m.Shard == nil {
		return nil
	}
	for _, w := range m.Shard.Windows {
		diff := w.Start.Sub(m.Now)
		if diff < 0 {
			continue
		}
		if lead := int(diff / time.Minute); lead <= shardNoticeMinutes {
			return []event.Occurrence{event.NewShard(m.Shard, w, lead)}
		}
	}
	return nil
}

func travellingSpirit(m Moment) []event.Occurrence {
	if m.Spirit == nil {
		return nil
	}
	earliest := m.Spirit.Start.Add(-spiritNoticeMinutes * time.Minute)
	if m.Now.Before(earliest) || m.Now.After(m.Spirit.Start) {
		return nil
	}
	lead := int(m.Spirit.Start.Sub(m.Now) / time.Minute)
	return []event.Occurrence{event.NewSpirit(m.Spirit.Entity, m.Spirit.Start, lead)}
}
