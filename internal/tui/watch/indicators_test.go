package watch

import (
	"strings"
	"testing"
	"time"
)

func TestActivityGaugeFillsAndDrains(t *testing.T) {
	theme := NewDefaultTheme()
	var g activityGauge

	if got := strings.Count(g.render(theme), "●"); got != 0 {
		t.Fatalf("fresh gauge filled = %d, want 0", got)
	}

	g.logSeen()
	if got := strings.Count(g.render(theme), "●"); got != gaugeWidth {
		t.Fatalf("gauge after log filled = %d, want %d", got, gaugeWidth)
	}

	g.lastLog = time.Now().Add(-2*drainInterval - time.Millisecond)
	if got := strings.Count(g.render(theme), "●"); got != gaugeWidth-2 {
		t.Fatalf("gauge after two intervals filled = %d, want %d", got, gaugeWidth-2)
	}

	g.lastLog = time.Now().Add(-time.Duration(gaugeWidth+1) * drainInterval)
	if got := strings.Count(g.render(theme), "●"); got != 0 {
		t.Fatalf("drained gauge filled = %d, want 0", got)
	}
}

func TestActivityGaugeGlyphAdvances(t *testing.T) {
	var g activityGauge
	first := g.glyph()
	g.tick()
	if g.glyph() == first {
		t.Fatal("glyph did not advance on tick")
	}
	g.tick()
	if g.glyph() != first {
		t.Fatal("glyph did not wrap around")
	}
}
