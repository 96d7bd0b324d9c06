package planner

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"superclaude/internal/cache"
	"superclaude/internal/rules"
	"superclaude/internal/selector"
	"superclaude/internal/task"
)

func newTestPlanner(t *testing.T) *Planner {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, rules.WriteDefaults(dir))
	c := cache.New(dir)
	return New(c, selector.New(c))
}

func TestCreateActivationPlan_EmptyIsValid(t *testing.T) {
	p := newTestPlanner(t)

	plan, err := p.CreateActivationPlan(nil, map[string]interface{}{
		task.KeyUserIntent: "just listing things",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, plan.ID)
	assert.Empty(t, plan.Servers)
	assert.Equal(t, rules.StrategyNone, plan.Strategy)
	assert.Zero(t, plan.EstimatedCostMs)
	assert.Empty(t, plan.EfficiencyGains)
}

func TestCreateActivationPlan_NonMatchingCandidatesDropped(t *testing.T) {
	p := newTestPlanner(t)

	// Candidates whose triggers do not fire for this context are filtered
	// out, not errors.
	plan, err := p.CreateActivationPlan(
		[]rules.ServerName{rules.ServerMagic, rules.ServerPlaywright, "nosuch"},
		map[string]interface{}{task.KeyOperationType: "docs_lookup"},
	)
	require.NoError(t, err)
	assert.Empty(t, plan.Servers)
	assert.Equal(t, rules.StrategyNone, plan.Strategy)
}

func TestCreateActivationPlan_SingleSurvivorIsSequential(t *testing.T) {
	p := newTestPlanner(t)

	plan, err := p.CreateActivationPlan(
		[]rules.ServerName{rules.ServerSequential},
		map[string]interface{}{task.KeyOperationType: "debugging"},
	)
	require.NoError(t, err)
	assert.Equal(t, []rules.ServerName{rules.ServerSequential}, plan.Servers)
	assert.Equal(t, rules.StrategySequential, plan.Strategy)
	// sequential base cost 180 plus 25 coordination overhead.
	assert.InDelta(t, 205, plan.EstimatedCostMs, 0.001)
}

func TestCreateActivationPlan_IndependentSurvivorsRunParallel(t *testing.T) {
	p := newTestPlanner(t)

	plan, err := p.CreateActivationPlan(
		[]rules.ServerName{rules.ServerMorphllm, rules.ServerSerena},
		map[string]interface{}{
			task.KeyOperationType: "pattern_update",
			task.KeyPatternType:   "import_statements",
			task.KeyFileCount:     20,
		},
	)
	require.NoError(t, err)
	assert.Equal(t, rules.StrategyParallel, plan.Strategy)
	// Analytical tier precedes transformational regardless of score.
	assert.Equal(t, []rules.ServerName{rules.ServerSerena, rules.ServerMorphllm}, plan.Servers)
	// Parallel cost is the slowest server plus overhead: max(110, 90) + 25.
	assert.InDelta(t, 135, plan.EstimatedCostMs, 0.001)
	assert.InDelta(t, 315, plan.EfficiencyGains["time_savings_ms"], 0.001)
	assert.InDelta(t, 4300, plan.EfficiencyGains["token_savings"], 0.001)
	assert.InDelta(t, 6, plan.EfficiencyGains["manual_iterations_saved"], 0.001)
}

func TestCreateActivationPlan_DependencyEdgeForcesSequential(t *testing.T) {
	p := newTestPlanner(t)

	plan, err := p.CreateActivationPlan(
		[]rules.ServerName{rules.ServerMagic, rules.ServerContext7},
		map[string]interface{}{
			task.KeyOperationType:   "ui_component",
			task.KeyHasExternalDeps: true,
		},
	)
	require.NoError(t, err)
	assert.Equal(t, rules.StrategySequential, plan.Strategy)
	// Foundational docs server activates before the presentation server
	// that depends on it.
	assert.Equal(t, []rules.ServerName{rules.ServerContext7, rules.ServerMagic}, plan.Servers)
	// Sequential cost is the sum: 120 + 150 + 25 overhead.
	assert.InDelta(t, 295, plan.EstimatedCostMs, 0.001)
	assert.InDelta(t, 155, plan.EfficiencyGains["time_savings_ms"], 0.001)
}

func TestCreateActivationPlan_DominantScorerGetsFallbackStrategy(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, rules.WriteDefaults(dir))

	// Two independent servers matching the same operation, with a
	// complexity weight large enough to open the dominance margin.
	table := &rules.Table{
		Servers: []rules.ServerRule{
			{
				Name: rules.ServerSequential, Category: "analysis", Tier: rules.TierAnalytical,
				BaseWeight: 0.2, ComplexityWeight: 0.8,
				Triggers: []rules.Trigger{{Operations: []string{"analysis"}}},
			},
			{
				Name: rules.ServerSerena, Category: "symbol_operations", Tier: rules.TierAnalytical,
				BaseWeight: 0.2,
				Triggers:   []rules.Trigger{{Operations: []string{"analysis"}}},
			},
		},
		Scoring:      &rules.Scoring{MatchWeight: 1.0, MinScore: 0.5, DominanceMargin: 0.6},
		Coordination: &rules.Coordination{OverheadMs: 25, BaselineMs: 450, DefaultStrategy: "general"},
	}
	require.NoError(t, rules.Save(table, filepath.Join(dir, rules.TableServers+".yml")))
	c := cache.New(dir)
	p := New(c, selector.New(c))

	plan, err := p.CreateActivationPlan(
		[]rules.ServerName{rules.ServerSequential, rules.ServerSerena},
		map[string]interface{}{
			task.KeyOperationType:   "analysis",
			task.KeyComplexityScore: 1.0,
		},
	)
	require.NoError(t, err)
	assert.Equal(t, rules.StrategyPrimaryFallback, plan.Strategy)
	assert.Equal(t, []rules.ServerName{rules.ServerSequential, rules.ServerSerena}, plan.Servers)
	// Only the primary's base cost counts: 180 + 25 overhead.
	assert.InDelta(t, 205, plan.EstimatedCostMs, 0.001)
}

func TestCreateActivationPlan_DuplicateCandidatesCollapse(t *testing.T) {
	p := newTestPlanner(t)

	plan, err := p.CreateActivationPlan(
		[]rules.ServerName{rules.ServerSequential, rules.ServerSequential, rules.ServerSequential},
		map[string]interface{}{task.KeyOperationType: "debugging"},
	)
	require.NoError(t, err)
	assert.Equal(t, []rules.ServerName{rules.ServerSequential}, plan.Servers)
}

func TestCreateActivationPlan_MalformedContext(t *testing.T) {
	p := newTestPlanner(t)

	plan, err := p.CreateActivationPlan(nil, map[string]interface{}{
		task.KeyToolName: []string{"not", "a", "scalar"},
	})
	require.Error(t, err)
	assert.Nil(t, plan)
	var invalid *task.InvalidContextError
	assert.ErrorAs(t, err, &invalid)
}

func TestCreateActivationPlan_ConfigErrorPropagates(t *testing.T) {
	c := cache.New(t.TempDir())
	p := New(c, selector.New(c))

	plan, err := p.CreateActivationPlan(nil, map[string]interface{}{
		task.KeyOperationType: "debugging",
	})
	require.Error(t, err)
	assert.Nil(t, plan)
	assert.True(t, cache.IsNotFound(err))
}

func TestCreateActivationPlan_FreshIDPerPlan(t *testing.T) {
	p := newTestPlanner(t)
	attrs := map[string]interface{}{task.KeyOperationType: "debugging"}

	first, err := p.CreateActivationPlan([]rules.ServerName{rules.ServerSequential}, attrs)
	require.NoError(t, err)
	second, err := p.CreateActivationPlan([]rules.ServerName{rules.ServerSequential}, attrs)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
}
