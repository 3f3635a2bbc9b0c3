// Package shard computes the day's shard eruption: which realm and sky map
// the shard lands in, whether it is a strong shard, the candle reward, and
// the three eruption windows.
//
// The rotation is a pure function of the civil date in the game's timezone.
// Odd days of the month are strong shards; the variant tables below carry
// each rotation's blackout weekdays, inter-window interval, and first-window
// offset from local midnight.
package shard

import (
	"fmt"
	"strings"
	"time"
)

// SkyMap identifies the in-game area a shard lands in.
type SkyMap string

const (
	// Daylight Prairie.
	BirdNest         SkyMap = "Bird Nest"
	ButterflyFields  SkyMap = "Butterfly Fields"
	Cave             SkyMap = "Cave"
	KoiPond          SkyMap = "Koi Pond"
	SanctuaryIslands SkyMap = "Sanctuary Islands"

	// Hidden Forest.
	Boneyard         SkyMap = "Boneyard"
	ElevatedClearing SkyMap = "Elevated Clearing"
	ForestBrook      SkyMap = "Forest Brook"
	ForestEnd        SkyMap = "Forest End"
	Treehouse        SkyMap = "Treehouse"

	// Valley of Triumph.
	IceRink         SkyMap = "Ice Rink"
	HermitValley    SkyMap = "Hermit Valley"
	VillageOfDreams SkyMap = "Village of Dreams"

	// Golden Wasteland.
	Battlefield  SkyMap = "Battlefield"
	BrokenTemple SkyMap = "Broken Temple"
	CrabFields   SkyMap = "Crab Fields"
	ForgottenArk SkyMap = "Forgotten Ark"
	Graveyard    SkyMap = "Graveyard"

	// Vault of Knowledge.
	JellyfishCove   SkyMap = "Jellyfish Cove"
	StarlightDesert SkyMap = "Starlight Desert"
)

// realmNames is indexed by (day_of_month - 1) % 5.
var realmNames = [5]string{
	"Daylight Prairie",
	"Hidden Forest",
	"Valley of Triumph",
	"Golden Wasteland",
	"Vault of Knowledge",
}

const (
	windowCount    = 3
	windowDuration = 4 * time.Hour
	landingDelay   = 520 * time.Second
)

// Window is a single eruption window. The shard lands at Start and the area
// clears up at End.
type Window struct {
	Start time.Time
	End   time.Time
}

// Eruption describes the day's shard eruption.
type Eruption struct {
	Realm   string
	Map     SkyMap
	Strong  bool
	Reward  float64
	Windows [windowCount]Window
	URL     string
}

type areaData struct {
	skyMap SkyMap
	reward float64
}

type variant struct {
	blackout [2]time.Weekday
	interval time.Duration
	offset   time.Duration
	areas    [5]areaData
}

// Calculator derives shard eruptions from civil dates. Construct with New.
type Calculator struct {
	variants [5]variant
	cdnURL   string
}

// New builds the rotation tables. cdnURL is the asset host used for map
// infographic links.
func New(cdnURL string) *Calculator {
	return &Calculator{
		cdnURL: strings.TrimSuffix(cdnURL, "/"),
		variants: [5]variant{
			// Regular shards (even days).
			{
				blackout: [2]time.Weekday{time.Saturday, time.Sunday},
				interval: 8 * time.Hour,
				offset:   time.Hour + 50*time.Minute,
				areas: [5]areaData{
					{ButterflyFields, 200}, {ForestBrook, 200}, {IceRink, 200},
					{BrokenTemple, 200}, {StarlightDesert, 200},
				},
			},
			{
				blackout: [2]time.Weekday{time.Sunday, time.Monday},
				interval: 8 * time.Hour,
				offset:   2*time.Hour + 10*time.Minute,
				areas: [5]areaData{
					{KoiPond, 200}, {Boneyard, 200}, {IceRink, 200},
					{Battlefield, 200}, {StarlightDesert, 200},
				},
			},
			// Strong shards (odd days).
			{
				blackout: [2]time.Weekday{time.Monday, time.Tuesday},
				interval: 6 * time.Hour,
				offset:   7*time.Hour + 40*time.Minute,
				areas: [5]areaData{
					{Cave, 2}, {ForestEnd, 2.5}, {VillageOfDreams, 2.5},
					{Graveyard, 2}, {JellyfishCove, 3.5},
				},
			},
			{
				blackout: [2]time.Weekday{time.Tuesday, time.Wednesday},
				interval: 6 * time.Hour,
				offset:   2*time.Hour + 20*time.Minute,
				areas: [5]areaData{
					{BirdNest, 2.5}, {Treehouse, 3.5}, {VillageOfDreams, 2.5},
					{CrabFields, 2.5}, {JellyfishCove, 3.5},
				},
			},
			{
				blackout: [2]time.Weekday{time.Wednesday, time.Thursday},
				interval: 6 * time.Hour,
				offset:   3*time.Hour + 30*time.Minute,
				areas: [5]areaData{
					{SanctuaryIslands, 3.5}, {ElevatedClearing, 3.5}, {HermitValley, 3.5},
					{ForgottenArk, 3.5}, {JellyfishCove, 3.5},
				},
			},
		},
	}
}

// ForDate returns the shard eruption for the civil date of t, or nil on a
// blackout weekday for the active variant. Windows are returned in t's
// location.
func (c *Calculator) ForDate(t time.Time) *Eruption {
	midnight := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	day := t.Day()
	strong := day%2 == 1

	var idx int
	if strong {
		idx = ((day-1)/2)%3 + 2
	} else {
		idx = (day / 2) % 2
	}

	v := &c.variants[idx]
	weekday := t.Weekday()
	if weekday == v.blackout[0] || weekday == v.blackout[1] {
		return nil
	}

	area := v.areas[(day-1)%5]

	e := &Eruption{
		Realm:  realmNames[(day-1)%5],
		Map:    area.skyMap,
		Strong: strong,
		Reward: area.reward,
		URL:    c.mapURL(area.skyMap),
	}

	base := midnight.Add(v.offset)
	for i := 0; i < windowCount; i++ {
		e.Windows[i] = Window{
			Start: base.Add(landingDelay),
			End:   base.Add(windowDuration),
		}
		base = base.Add(v.interval)
	}
	return e
}

func (c *Calculator) mapURL(m SkyMap) string {
	slug := strings.ReplaceAll(strings.ToLower(string(m)), " ", "_")
	return fmt.Sprintf("%s/daily_guides/shard_eruptions/%s.webp", c.cdnURL, slug)
}
