package timeline

import (
	"time"

	"github.com/VanshAg283/FCS-Project/internal/domain"
)

const dateLabelLayout = "January 2, 2006"

// DayGroup is the messages of one calendar day in the viewer's zone.
type DayGroup struct {
	Label    string
	Day      time.Time // midnight in the viewer's zone
	Messages []domain.ChatMessage
}

// Groups partitions the timeline by calendar day in now's location.
func (t *Timeline) Groups(now time.Time) []DayGroup {
	return GroupByDay(t.Messages(), now)
}

// GroupByDay partitions ms, which must be in ascending timestamp order, into
// day buckets labelled relative to now.
func GroupByDay(ms []domain.ChatMessage, now time.Time) []DayGroup {
	loc := now.Location()
	var out []DayGroup
	for _, m := range ms {
		day := midnight(m.Timestamp.In(loc))
		if n := len(out); n > 0 && out[n-1].Day.Equal(day) {
			out[n-1].Messages = append(out[n-1].Messages, m)
			continue
		}
		out = append(out, DayGroup{Label: DayLabel(day, now), Day: day, Messages: []domain.ChatMessage{m}})
	}
	return out
}

// DayLabel returns "Today", "Yesterday" or the long date of day.
func DayLabel(day, now time.Time) string {
	loc := now.Location()
	d := midnight(day.In(loc))
	today := midnight(now)
	switch {
	case d.Equal(today):
		return "Today"
	case d.Equal(today.AddDate(0, 0, -1)):
		return "Yesterday"
	default:
		return d.Format(dateLabelLayout)
	}
}

func midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
