// Package scenario runs scripted headless sessions against the engine.
// Each scenario drives a fresh engine with simulated time and checks the
// outcome, which makes the package usable both from tests and from the
// scenario-runner binary.
package scenario

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/MRamiBalles/BacklogBreakdown/server/internal/domain/item"
	"github.com/MRamiBalles/BacklogBreakdown/server/internal/domain/rules"
	"github.com/MRamiBalles/BacklogBreakdown/server/internal/domain/session"
	"github.com/MRamiBalles/BacklogBreakdown/server/internal/engine"
	"github.com/MRamiBalles/BacklogBreakdown/server/internal/events"
	"github.com/MRamiBalles/BacklogBreakdown/server/internal/platform/logger"
)

// Step is the simulated frame length.
const Step = 50 * time.Millisecond

// Result captures the outcome of one scenario.
type Result struct {
	Name        string        `json:"name"`
	Seed        uint64        `json:"seed"`
	Passed      bool          `json:"passed"`
	Reason      string        `json:"reason,omitempty"`
	FinalState  session.State `json:"final_state"`
	FinalStress float64       `json:"final_stress"`
	Day         int           `json:"day"`
	Consumed    int           `json:"consumed"`
	Events      int           `json:"events"`
	SimTime     time.Duration `json:"sim_time"`
}

// Scenario is one scripted session.
type Scenario struct {
	Name string
	// Configure adjusts the engine settings before the run.
	Configure func(cfg *engine.Config)
	// Play is called once per frame while the session is playing.
	Play func(eng *engine.Engine, frame int)
	// Limit caps simulated time.
	Limit time.Duration
	// Check judges the run. A non-empty reason fails it.
	Check func(run *Run) string
}

// Run is what a scenario produced.
type Run struct {
	Engine   *engine.Engine
	EventLog *events.EventLog
	Snapshot engine.Snapshot
	SimTime  time.Duration
}

// Count returns how many events of a type the run emitted.
func (r *Run) Count(t events.EventType) int {
	return len(r.EventLog.GetByType(t))
}

// Runner executes scenarios with a shared base configuration.
type Runner struct {
	base   engine.Config
	logger *logger.Logger
}

// NewRunner creates a runner. Seed 0 in base is replaced by a fixed seed so
// runs are repeatable.
func NewRunner(base engine.Config, log *logger.Logger) *Runner {
	if base.Seed == 0 {
		base.Seed = 1
	}
	if log == nil {
		log = logger.NewDiscard()
	}
	return &Runner{base: base, logger: log}
}

// Execute runs one scenario to completion, failure or its time limit.
func (r *Runner) Execute(ctx context.Context, sc Scenario) Result {
	cfg := r.base
	if sc.Configure != nil {
		sc.Configure(&cfg)
	}
	limit := sc.Limit
	if limit <= 0 {
		limit = 10 * time.Minute
	}

	el := events.NewEventLog(nil)
	eng := engine.NewEngine(cfg, nil, el, logger.NewDiscard())
	res := Result{Name: sc.Name, Seed: cfg.Seed}

	if _, err := eng.StartSession(); err != nil {
		res.Reason = "start: " + err.Error()
		return res
	}

	run := &Run{Engine: eng, EventLog: el}
	for frame := 0; run.SimTime < limit && eng.State() == session.StatePlaying; frame++ {
		if ctx.Err() != nil {
			res.Reason = "cancelled: " + ctx.Err().Error()
			return res
		}
		if sc.Play != nil {
			sc.Play(eng, frame)
		}
		eng.Step(Step)
		run.SimTime += Step
	}

	run.Snapshot = eng.Snapshot()
	res.FinalState = run.Snapshot.State
	res.FinalStress = run.Snapshot.Stress
	res.Day = run.Snapshot.Day
	res.Consumed = run.Snapshot.Tally.Total
	res.Events = el.Len()
	res.SimTime = run.SimTime

	if sc.Check != nil {
		res.Reason = sc.Check(run)
	}
	res.Passed = res.Reason == ""

	status := "PASSED"
	if !res.Passed {
		status = "FAILED: " + res.Reason
	}
	r.logger.Event("SCENARIO", sc.Name, fmt.Sprintf("%s day:%d consumed:%d stress:%.1f", status, res.Day, res.Consumed, res.FinalStress))
	return res
}

// RunAll executes scenarios in order.
func (r *Runner) RunAll(ctx context.Context, scenarios []Scenario) []Result {
	results := make([]Result, 0, len(scenarios))
	for _, sc := range scenarios {
		results = append(results, r.Execute(ctx, sc))
	}
	return results
}

// firstStackItem finds the top item of any stack, preferring the fullest one.
func firstStackItem(snap engine.Snapshot) (item.ID, bool) {
	best := -1
	for i, st := range snap.Stacks {
		if len(st.Items) == 0 {
			continue
		}
		if best < 0 || st.Height > snap.Stacks[best].Height {
			best = i
		}
	}
	if best < 0 {
		return 0, false
	}
	items := snap.Stacks[best].Items
	return items[len(items)-1].ID, true
}

// Builtin returns the standard scenario suite.
func Builtin() []Scenario {
	return []Scenario{
		{
			Name:  "idle-collapse",
			Limit: time.Hour,
			Configure: func(cfg *engine.Config) {
				cfg.SpawnInterval = 0
			},
			Check: func(run *Run) string {
				if run.Snapshot.State != session.StateFailed {
					return "an idle player never broke down"
				}
				if run.Snapshot.Stress <= rules.FailureThreshold {
					return fmt.Sprintf("failed at stress %.1f", run.Snapshot.Stress)
				}
				if run.Snapshot.Tally.Total != 0 {
					return "items were consumed without input"
				}
				// Idle days add at least the idle penalty each
				maxDays := int((rules.FailureThreshold-rules.InitialStress)/rules.IdleDayPenalty) + 1
				if run.Count(events.EventTypeDayEnded) > maxDays {
					return fmt.Sprintf("took %d days, expected at most %d", run.Count(events.EventTypeDayEnded), maxDays)
				}
				return ""
			},
		},
		{
			Name:  "steady-consumer",
			Limit: 2 * time.Minute,
			Configure: func(cfg *engine.Config) {
				cfg.SpawnInterval = 0
			},
			Play: func(eng *engine.Engine, frame int) {
				snap := eng.Snapshot()
				if len(snap.Queue) > 0 {
					return
				}
				if id, ok := firstStackItem(snap); ok {
					eng.TryEnqueue(id)
				}
			},
			Check: func(run *Run) string {
				if run.Snapshot.Tally.Total == 0 {
					return "nothing was consumed"
				}
				if run.Count(events.EventTypeItemConsumed) != run.Snapshot.Tally.Total {
					return "consumption events and tally disagree"
				}
				return ""
			},
		},
		{
			Name:  "shopaholic",
			Limit: 30 * time.Second,
			Configure: func(cfg *engine.Config) {
				cfg.SpawnInterval = 0
			},
			Play: func(eng *engine.Engine, frame int) {
				if frame%4 == 0 {
					eng.Purchase()
				}
			},
			Check: func(run *Run) string {
				spawned := 0
				for _, e := range run.EventLog.GetByType(events.EventTypePurchase) {
					if p, ok := e.Payload.(engine.PurchaseResult); ok {
						spawned += p.Spawned
					}
				}
				want := spawned + run.Engine.Config().InitialItems
				if got := run.Count(events.EventTypeItemSpawned); got != want {
					return fmt.Sprintf("%d spawn events for %d purchased items", got, want)
				}
				for _, st := range run.Snapshot.Stacks {
					if st.Height > run.Engine.Config().MaxStackHeight+item.DefaultCatalog().SizeOf(st.Category).Height*2 {
						return fmt.Sprintf("stack %d grew to %.0f", st.ID, st.Height)
					}
				}
				return ""
			},
		},
	}
}

// fingerprint identifies an event by what happened, leaving out the ids that
// differ between otherwise identical runs.
func fingerprint(e events.GameEvent) string {
	target := e.TargetID
	if target == e.SessionID {
		target = ""
	}
	payload, err := json.Marshal(e.Payload)
	if err != nil {
		payload = []byte(err.Error())
	}
	return fmt.Sprintf("%s|%s|%s|%d|%s", e.Type, e.ActorID, target, e.GameDay, payload)
}

// Deterministic reports whether two runs of the same scenario with the same
// seed emit identical event sequences.
func (r *Runner) Deterministic(ctx context.Context, sc Scenario) (bool, string) {
	trace := func() []string {
		cfg := r.base
		if sc.Configure != nil {
			sc.Configure(&cfg)
		}
		el := events.NewEventLog(nil)
		eng := engine.NewEngine(cfg, nil, el, logger.NewDiscard())
		if _, err := eng.StartSession(); err != nil {
			return nil
		}
		limit := sc.Limit
		if limit <= 0 {
			limit = time.Minute
		}
		for frame, t := 0, time.Duration(0); t < limit && eng.State() == session.StatePlaying; frame, t = frame+1, t+Step {
			if ctx.Err() != nil {
				break
			}
			if sc.Play != nil {
				sc.Play(eng, frame)
			}
			eng.Step(Step)
		}
		out := make([]string, 0, el.Len())
		for _, e := range el.Replay() {
			out = append(out, fingerprint(e))
		}
		return out
	}

	a, b := trace(), trace()
	if len(a) != len(b) {
		return false, fmt.Sprintf("event counts differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			return false, fmt.Sprintf("event %d differs: %s vs %s", i, a[i], b[i])
		}
	}
	return true, ""
}
