package watch

import (
	"strings"
	"time"
)

const gaugeWidth = 5

// drainInterval is how long one gauge cell stays lit after the last log entry.
const drainInterval = 2 * time.Second

var pollFrames = [...]string{"⟲", "⟳"}

// activityGauge tracks poll liveness and log recency for the header. The
// poll glyph advances once per tick; the gauge fill is derived from the age
// of the last log entry, so it drains on its own without a decay step.
type activityGauge struct {
	frame   int
	lastLog time.Time
}

func (a *activityGauge) tick() {
	a.frame = (a.frame + 1) % len(pollFrames)
}

func (a *activityGauge) logSeen() {
	a.lastLog = time.Now()
}

func (a activityGauge) glyph() string {
	return pollFrames[a.frame]
}

func (a activityGauge) lastActivity() time.Time {
	return a.lastLog
}

func (a activityGauge) render(theme Theme) string {
	filled := 0
	if !a.lastLog.IsZero() {
		filled = gaugeWidth - int(time.Since(a.lastLog)/drainInterval)
		if filled < 0 {
			filled = 0
		}
	}
	var b strings.Builder
	for i := 0; i < gaugeWidth; i++ {
		if i < filled {
			b.WriteString(theme.GaugeActive.Render("●"))
		} else {
			b.WriteString(theme.GaugeInactive.Render("○"))
		}
	}
	return b.String()
}
