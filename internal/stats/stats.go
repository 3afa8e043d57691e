// Package stats accumulates and formats pass-manager statistics: how
// many times each pass ran, how many ops it touched, and how long the
// whole pipeline took, rendered human-readably via go-humanize the way
// a verbose build log should read.
package stats

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// PassStat accumulates one named pass's run count and total change
// count across every invocation in a pipeline run.
type PassStat struct {
	Name    string
	Runs    int
	Changes int
	Elapsed time.Duration
}

// Collector accumulates PassStats across a pipeline run, keyed by pass
// name, plus the run's overall wall time.
type Collector struct {
	byName  map[string]*PassStat
	order   []string
	started time.Time
	total   time.Duration
}

// NewCollector returns an empty Collector.
func NewCollector() *Collector {
	return &Collector{byName: make(map[string]*PassStat)}
}

// Record logs one pass invocation: whether it reported any IR change,
// and how long it took.
func (c *Collector) Record(name string, changed bool, elapsed time.Duration) {
	s, ok := c.byName[name]
	if !ok {
		s = &PassStat{Name: name}
		c.byName[name] = s
		c.order = append(c.order, name)
	}
	s.Runs++
	s.Elapsed += elapsed
	if changed {
		s.Changes++
	}
	c.total += elapsed
}

// Report renders a stable, sorted-by-name table of every pass's
// statistics, with durations and counts humanized.
func (c *Collector) Report() string {
	names := append([]string(nil), c.order...)
	sort.Strings(names)
	var sb strings.Builder
	fmt.Fprintf(&sb, "pass pipeline: %d pass kinds, %s total\n", len(names), c.total)
	for _, name := range names {
		s := c.byName[name]
		fmt.Fprintf(&sb, "  %-20s runs=%-4s changed=%-4s time=%s\n",
			name,
			humanize.Comma(int64(s.Runs)),
			humanize.Comma(int64(s.Changes)),
			s.Elapsed,
		)
	}
	return sb.String()
}
