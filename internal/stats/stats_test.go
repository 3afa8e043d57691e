package stats

import (
	"strings"
	"testing"
	"time"
)

func TestCollectorRecord(t *testing.T) {
	c := NewCollector()
	c.Record("GVN", true, 10*time.Millisecond)
	c.Record("GVN", false, 5*time.Millisecond)
	c.Record("DCE", true, time.Millisecond)

	gvn := c.byName["GVN"]
	if gvn.Runs != 2 || gvn.Changes != 1 {
		t.Fatalf("GVN stat = %+v, want Runs=2 Changes=1", gvn)
	}
	if gvn.Elapsed != 15*time.Millisecond {
		t.Errorf("GVN elapsed = %v, want 15ms", gvn.Elapsed)
	}

	report := c.Report()
	if !strings.Contains(report, "GVN") || !strings.Contains(report, "DCE") {
		t.Errorf("Report() missing a pass name:\n%s", report)
	}
	if !strings.Contains(report, "2 pass kinds") {
		t.Errorf("Report() missing pass-kind count:\n%s", report)
	}
}
