// Package planner turns a set of candidate capability servers into an
// ordered activation plan: which servers to engage, in what order, under
// which coordination strategy, and at what estimated cost against the
// generic no-selection baseline.
package planner

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"superclaude/internal/cache"
	"superclaude/internal/logging"
	"superclaude/internal/rules"
	"superclaude/internal/selector"
	"superclaude/internal/task"
)

// Plan is an immutable activation plan. It is created fresh per request
// and never mutated; sharing across goroutines is safe.
type Plan struct {
	ID              string               `json:"id"`
	Servers         []rules.ServerName   `json:"servers"`
	Strategy        rules.Strategy       `json:"strategy"`
	EstimatedCostMs float64              `json:"estimated_cost_ms"`
	EfficiencyGains map[string]float64   `json:"efficiency_gains"`
	CreatedAt       time.Time            `json:"created_at"`
}

// Planner builds activation plans from selection output.
type Planner struct {
	cache  *cache.Cache
	engine *selector.Engine
}

// New creates a planner over the given cache and selection engine.
func New(c *cache.Cache, e *selector.Engine) *Planner {
	return &Planner{cache: c, engine: e}
}

// survivor is one candidate that passed predicate filtering.
type survivor struct {
	rule  rules.ServerRule
	index int
	score float64
}

// CreateActivationPlan filters candidates down to the servers whose
// triggers actually match the context, orders them by tier then score,
// and attaches a coordination strategy and cost estimate.
//
// An empty result is a valid plan (strategy "none"), never an error. The
// only non-configuration failure is a malformed context.
func (p *Planner) CreateActivationPlan(candidates []rules.ServerName, attrs map[string]interface{}) (*Plan, error) {
	tc, err := task.New(attrs)
	if err != nil {
		return nil, err
	}

	serversTable, err := p.cache.Get(rules.TableServers)
	if err != nil {
		return nil, err
	}
	perfTable, err := p.cache.Get(rules.TablePerformance)
	if err != nil {
		return nil, err
	}

	survivors := p.filter(candidates, serversTable, tc)
	plan := &Plan{
		ID:              uuid.NewString(),
		Strategy:        rules.StrategyNone,
		EfficiencyGains: make(map[string]float64),
		CreatedAt:       time.Now(),
	}
	if len(survivors) == 0 {
		return plan, nil
	}

	orderSurvivors(survivors)
	for _, s := range survivors {
		plan.Servers = append(plan.Servers, s.rule.Name)
	}

	plan.Strategy = chooseStrategy(survivors, serversTable.Scoring)
	plan.EstimatedCostMs = estimateCost(survivors, plan.Strategy, perfTable, serversTable.Coordination)

	if saved := serversTable.Coordination.BaselineMs - plan.EstimatedCostMs; saved > 0 {
		plan.EfficiencyGains["time_savings_ms"] = saved
	}
	for _, s := range survivors {
		for metric, gain := range s.rule.Gains {
			plan.EfficiencyGains[metric] += gain
		}
	}

	logging.Get(logging.CategoryPlanner).Debug("plan %s: %d server(s), strategy=%s, cost=%.0fms",
		plan.ID, len(plan.Servers), plan.Strategy, plan.EstimatedCostMs)
	return plan, nil
}

// filter keeps candidates that are declared in the rule table and whose
// triggers match the context. Unknown or non-matching candidates are
// silently dropped; duplicates collapse to the first occurrence.
func (p *Planner) filter(candidates []rules.ServerName, table *rules.Table, tc task.Context) []*survivor {
	seen := make(map[rules.ServerName]bool, len(candidates))
	var survivors []*survivor
	for _, name := range candidates {
		if seen[name] {
			continue
		}
		seen[name] = true

		rule, index, ok := table.Rule(name)
		if !ok || !selector.Matches(rule, "", tc) {
			continue
		}
		survivors = append(survivors, &survivor{
			rule:  rule,
			index: index,
			score: selector.Score(rule, table.Scoring, "", tc),
		})
	}
	return survivors
}

// orderSurvivors sorts by tier precedence (foundational first), then
// descending score, then rule declaration order.
func orderSurvivors(survivors []*survivor) {
	sort.SliceStable(survivors, func(i, j int) bool {
		ri, rj := survivors[i].rule.Tier.Rank(), survivors[j].rule.Tier.Rank()
		if ri != rj {
			return ri < rj
		}
		if survivors[i].score != survivors[j].score {
			return survivors[i].score > survivors[j].score
		}
		return survivors[i].index < survivors[j].index
	})
}

// chooseStrategy picks the coordination strategy. Declared dependency
// edges among survivors force sequential execution; a single dominant
// scorer with an alternate becomes primary-with-fallback; mutually
// independent survivors run in parallel. A lone survivor activates
// sequentially.
func chooseStrategy(survivors []*survivor, scoring *rules.Scoring) rules.Strategy {
	if len(survivors) == 1 {
		return rules.StrategySequential
	}
	if hasDependencyEdge(survivors) {
		return rules.StrategySequential
	}

	top, second := topTwoScores(survivors)
	if top-second >= scoring.DominanceMargin {
		return rules.StrategyPrimaryFallback
	}
	return rules.StrategyParallel
}

func hasDependencyEdge(survivors []*survivor) bool {
	planned := make(map[rules.ServerName]bool, len(survivors))
	for _, s := range survivors {
		planned[s.rule.Name] = true
	}
	for _, s := range survivors {
		for _, dep := range s.rule.DependsOn {
			if planned[dep] {
				return true
			}
		}
	}
	return false
}

func topTwoScores(survivors []*survivor) (top, second float64) {
	for _, s := range survivors {
		switch {
		case s.score > top:
			second = top
			top = s.score
		case s.score > second:
			second = s.score
		}
	}
	return top, second
}

// estimateCost computes the plan cost from the performance targets: the
// sum of per-server base costs for sequential plans, the maximum for
// parallel plans, the primary's cost for primary-with-fallback, plus the
// fixed coordination overhead.
func estimateCost(survivors []*survivor, strategy rules.Strategy, perf *rules.Table, coord *rules.Coordination) float64 {
	cost := 0.0
	switch strategy {
	case rules.StrategyParallel:
		for _, s := range survivors {
			if c := serverCost(s.rule.Name, perf); c > cost {
				cost = c
			}
		}
	case rules.StrategyPrimaryFallback:
		primary := survivors[0]
		for _, s := range survivors[1:] {
			if s.score > primary.score {
				primary = s
			}
		}
		cost = serverCost(primary.rule.Name, perf)
	default:
		for _, s := range survivors {
			cost += serverCost(s.rule.Name, perf)
		}
	}
	return cost + coord.OverheadMs
}

func serverCost(name rules.ServerName, perf *rules.Table) float64 {
	target, ok := perf.Target(name)
	if !ok {
		logging.Get(logging.CategoryPlanner).Warn("no performance target for %s and no default", name)
		return 0
	}
	return target.BaseCostMs
}
