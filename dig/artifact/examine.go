package artifact

import (
	"fmt"
	"runtime/debug"

	"github.com/joshuapare/digkit/dig/interval"
	"github.com/joshuapare/digkit/pkg/types"
)

// Examiner recognizes and decodes one format. Examine returns true (or
// calls a.Take) when it claimed the artifact; an examiner that does not
// recognize the content returns false without modifying it. Malformed
// content it does recognize becomes notes and diagnostics, never a panic.
type Examiner interface {
	Name() string
	Examine(a *Artifact) bool
}

// ExaminerFunc adapts a function to Examiner.
type ExaminerFunc func(a *Artifact) bool

func (f ExaminerFunc) Name() string             { return "func" }
func (f ExaminerFunc) Examine(a *Artifact) bool { return f(a) }

type namedExaminer struct {
	name string
	fn   func(a *Artifact) bool
}

func (n namedExaminer) Name() string             { return n.name }
func (n namedExaminer) Examine(a *Artifact) bool { return n.fn(a) }

// Named returns an Examiner called name that runs fn.
func Named(name string, fn func(a *Artifact) bool) Examiner {
	return namedExaminer{name: name, fn: fn}
}

// GapTag marks artifacts synthesized from unclaimed ranges.
const GapTag = "gap"

// RunStats summarizes a RunToFixpoint call.
type RunStats struct {
	Passes    int            // examine/gap-fill rounds
	Examined  int            // artifacts offered to examiners
	Claimed   int            // artifacts some examiner claimed
	Gaps      int            // gap artifacts created
	Panics    int            // examiner panics recovered
	Exhausted bool           // stopped at MaxGapPasses with work left
	ByName    map[string]int // claims per examiner
}

func (s RunStats) String() string {
	return fmt.Sprintf("%d passes, %d examined, %d claimed, %d gaps, %d panics",
		s.Passes, s.Examined, s.Claimed, s.Gaps, s.Panics)
}

// RunToFixpoint examines every pending artifact, fills gaps, and repeats
// until a pass creates no new artifacts or MaxGapPasses is reached.
func (g *Graph) RunToFixpoint(examiners ...Examiner) RunStats {
	stats := RunStats{ByName: make(map[string]int)}
	for {
		stats.Passes++
		g.drain(examiners, &stats)
		if stats.Passes >= g.opts.MaxGapPasses {
			stats.Exhausted = g.exam.Len() > 0 || len(g.holes()) > 0
			break
		}
		created := g.fillGaps()
		stats.Gaps += created
		g.log.Info("pass complete", "pass", stats.Passes, "examined", stats.Examined, "gaps", created)
		if created == 0 {
			break
		}
	}
	g.log.Info("fixpoint reached", "stats", stats.String())
	return stats
}

func (g *Graph) drain(examiners []Examiner, stats *RunStats) {
	for {
		id, ok := g.exam.Next()
		if !ok {
			return
		}
		a, ok := g.Get(id)
		if !ok {
			continue
		}
		stats.Examined++
		for _, ex := range examiners {
			claimed := g.offer(ex, a, stats)
			if claimed || a.taken {
				a.taken = true
				a.examinedBy = ex.Name()
				stats.Claimed++
				stats.ByName[ex.Name()]++
				break
			}
		}
	}
}

func (g *Graph) offer(ex Examiner, a *Artifact, stats *RunStats) (claimed bool) {
	defer func() {
		if r := recover(); r != nil {
			stats.Panics++
			claimed = false
			a.Notef("examiner %s failed: %v", ex.Name(), r)
			a.Diagnose(types.Diagnostic{
				Severity:  types.SevError,
				Category:  types.DiagExaminer,
				Structure: ex.Name(),
				Issue:     fmt.Sprintf("examiner panicked: %v", r),
			})
			g.log.Warn("examiner panicked",
				"examiner", ex.Name(), "artifact", a.id, "panic", r, "stack", string(debug.Stack()))
		}
	}()
	return ex.Examine(a)
}

type hole struct {
	parent *Artifact
	r      interval.Range
}

// holes lists the ranges of every carved-up artifact that no triple covers.
func (g *Graph) holes() []hole {
	var out []hole
	for _, a := range g.byID {
		if len(a.slices) == 0 {
			continue
		}
		ranges := make([]interval.Range, len(a.slices))
		for i, s := range a.slices {
			ranges[i] = interval.Range{Lo: s.Start, Hi: s.Stop}
		}
		for _, r := range interval.Holes(0, a.Len(), ranges) {
			out = append(out, hole{parent: a, r: r})
		}
	}
	return out
}

// fillGaps derives one artifact per hole and returns how many were new.
func (g *Graph) fillGaps() int {
	created := 0
	for _, h := range g.holes() {
		child, isNew, err := g.derive(h.parent, h.r.Lo, h.r.Hi)
		if err != nil {
			h.parent.Notef("gap %s: %v", h.r, err)
			continue
		}
		if isNew {
			child.Tag(GapTag)
			child.AddName(fmt.Sprintf("gap %s", h.r))
			created++
		}
	}
	return created
}
