package event

import "fmt"

// Body renders the alert text for an occurrence. Timestamps use Discord's
// relative markup so each reader sees them in their own timezone. The text
// differs between "happening now" (Lead == 0) and lead-time announcements.
func (o Occurrence) Body() string {
	start := o.Start.Unix()
	now := o.Lead == 0

	switch o.Kind {
	case DailyReset:
		if now {
			return "It's a new day. Time to forge candles again!"
		}
		return fmt.Sprintf("A new day will begin in <t:%d:R>!", start)
	case EdenReset:
		if now {
			return "Sky kids may save statues in the Eye of Eden again!"
		}
		return fmt.Sprintf("Statues in the Eye of Eden will reset <t:%d:R>!", start)
	case InternationalSpaceStation:
		if now {
			return "The International Space Station is accessible!"
		}
		return fmt.Sprintf("The International Space Station will be accessible <t:%d:R>!", start)
	case Dragon:
		if now {
			return "The dragon is appearing now!"
		}
		return fmt.Sprintf("The dragon will appear <t:%d:R>!", start)
	case PollutedGeyser:
		if now {
			return "The Polluted Geyser is starting to erupt!"
		}
		return fmt.Sprintf("The Polluted Geyser will erupt <t:%d:R>!", start)
	case Grandma:
		if now {
			return "Grandma has begun sharing her light!"
		}
		return fmt.Sprintf("Grandma will share her light <t:%d:R>!", start)
	case Turtle:
		if now {
			return "The turtle needs cleansing of darkness now!"
		}
		return fmt.Sprintf("The turtle will need cleansing of darkness <t:%d:R>!", start)
	case ShardRegular, ShardStrong:
		strength := "regular"
		if o.Kind == ShardStrong {
			strength = "strong"
		}
		end := o.End.Unix()
		if now {
			return fmt.Sprintf("A %s shard eruption is landing in the [%s (%s)](%s) and clears up <t:%d:R>!",
				strength, o.Shard.Realm, o.Shard.Map, o.Shard.URL, end)
		}
		return fmt.Sprintf("A %s shard eruption lands in the [%s (%s)](%s) <t:%d:R> and clears up <t:%d:R>!",
			strength, o.Shard.Realm, o.Shard.Map, o.Shard.URL, start, end)
	case Aurora:
		if now {
			return "The AURORA concert is starting! Take your friends!"
		}
		return fmt.Sprintf("The AURORA concert will start <t:%d:R>! Take your friends!", start)
	case Passage:
		if now {
			return "The Season of Passage quests are starting!"
		}
		return fmt.Sprintf("The Season of Passage quests will start <t:%d:R>!", start)
	case AviaryFireworkFestival:
		if now {
			return "Aviary's Firework Festival is beginning!"
		}
		return fmt.Sprintf("Aviary's Firework Festival will begin <t:%d:R>!", start)
	case TravellingSpirit:
		if now {
			return fmt.Sprintf("%s has arrived!", o.SpiritName)
		}
		return fmt.Sprintf("%s will arrive <t:%d:R>!", o.SpiritName, start)
	default:
		return ""
	}
}
