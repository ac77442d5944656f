package trigger

import (
	"strconv"

	"github.com/ykvlv/dailyping/internal/domain"
)

const (
	KindPing     = "ping"
	KindReminder = "reminder"

	// ChannelGroup is the claim channel shared by email and push: one claim
	// covers every channel of a single firing.
	ChannelGroup = "notify"
)

// Fire is one firing opportunity found for a user at a local minute.
type Fire struct {
	Kind      string
	PeriodKey string
	Text      string // reminder text; empty for the daily ping
}

func PingKey(day domain.Day) string {
	return "ping:" + day.String()
}

func ReminderKey(day domain.Day, at domain.HHMM, entryID string) string {
	return "reminder:" + day.String() + ":" + string(at) + ":" + entryID
}

func SubItemKey(day domain.Day, at domain.HHMM, entryID string, index int) string {
	return ReminderKey(day, at, entryID) + ":" + strconv.Itoa(index)
}

// TriggerTime returns the user's daily trigger time, or def when unset or malformed.
func TriggerTime(u domain.User, def domain.HHMM) domain.HHMM {
	if u.TriggerTime == "" {
		return def
	}
	t, err := domain.ParseHHMM(string(u.TriggerTime))
	if err != nil {
		return def
	}
	return t
}

// Matches lists the fires due for u at lt. entry is the user's entry for lt.Day
// and may be nil.
func Matches(u domain.User, entry *domain.Entry, lt domain.LocalTime, def domain.HHMM) []Fire {
	var fires []Fire
	if lt.Clock == domain.EffectiveClock(lt.Day, TriggerTime(u, def), lt.Zone) {
		fires = append(fires, Fire{Kind: KindPing, PeriodKey: PingKey(lt.Day)})
	}
	if entry == nil {
		return fires
	}
	if hasClock(entry.Reminders, lt) {
		fires = append(fires, Fire{
			Kind:      KindReminder,
			PeriodKey: ReminderKey(lt.Day, lt.Clock, entry.ID),
			Text:      entry.Content,
		})
	}
	for i, it := range entry.SubItems {
		if !hasClock(it.Reminders, lt) {
			continue
		}
		fires = append(fires, Fire{
			Kind:      KindReminder,
			PeriodKey: SubItemKey(lt.Day, lt.Clock, entry.ID, i),
			Text:      it.Text,
		})
	}
	return fires
}

// hasClock reports whether any reminder falls on lt, shifting reminders
// skipped by a DST jump to the end of the gap.
func hasClock(list []domain.HHMM, lt domain.LocalTime) bool {
	for _, r := range list {
		// stored values may predate canonicalization ("9:00")
		n, err := domain.ParseHHMM(string(r))
		if err != nil {
			continue
		}
		if domain.EffectiveClock(lt.Day, n, lt.Zone) == lt.Clock {
			return true
		}
	}
	return false
}
