package selector

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"superclaude/internal/cache"
	"superclaude/internal/rules"
	"superclaude/internal/task"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, rules.WriteDefaults(dir))
	return New(cache.New(dir))
}

func TestSelectOptimalServer_UIComponent(t *testing.T) {
	engine := newTestEngine(t)
	tc := task.MustNew(map[string]interface{}{
		task.KeyToolName:      "build",
		task.KeyUserIntent:    "create a login form with validation",
		task.KeyOperationType: "ui_component",
	})

	server, err := engine.SelectOptimalServer("build", tc)
	require.NoError(t, err)
	assert.Equal(t, rules.ServerMagic, server)
}

func TestSelectOptimalServer_NoMatchIsNone(t *testing.T) {
	engine := newTestEngine(t)
	tc := task.MustNew(map[string]interface{}{
		task.KeyToolName:   "ls",
		task.KeyUserIntent: "just listing things",
	})

	server, err := engine.SelectOptimalServer("ls", tc)
	require.NoError(t, err)
	assert.Equal(t, rules.ServerName(""), server, "no match must be a valid outcome, not an error")
}

func TestSelectOptimalServer_Deterministic(t *testing.T) {
	engine := newTestEngine(t)
	tc := task.MustNew(map[string]interface{}{
		task.KeyToolName:        "analyze",
		task.KeyUserIntent:      "debug the race condition in the worker pool",
		task.KeyOperationType:   "debugging",
		task.KeyComplexityScore: 0.8,
	})

	first, err := engine.SelectOptimalServer("analyze", tc)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := engine.SelectOptimalServer("analyze", tc)
		require.NoError(t, err)
		assert.Equal(t, first, again, "identical context and tables must yield an identical decision")
	}
}

func TestSelectOptimalServer_TieBreaksByDeclarationOrder(t *testing.T) {
	dir := t.TempDir()
	table := &rules.Table{
		Servers: []rules.ServerRule{
			{
				Name: rules.ServerSequential, Category: "analysis", Tier: rules.TierAnalytical,
				BaseWeight: 0.2,
				Triggers:   []rules.Trigger{{Operations: []string{"analysis"}}},
			},
			{
				Name: rules.ServerSerena, Category: "symbol_operations", Tier: rules.TierAnalytical,
				BaseWeight: 0.2,
				Triggers:   []rules.Trigger{{Operations: []string{"analysis"}}},
			},
		},
		Scoring:      &rules.Scoring{MatchWeight: 1.0, MinScore: 0.5, DominanceMargin: 0.6},
		Coordination: &rules.Coordination{DefaultStrategy: "general"},
	}
	require.NoError(t, rules.Save(table, filepath.Join(dir, rules.TableServers+".yml")))
	engine := New(cache.New(dir))

	tc := task.MustNew(map[string]interface{}{task.KeyOperationType: "analysis"})
	server, err := engine.SelectOptimalServer("", tc)
	require.NoError(t, err)
	assert.Equal(t, rules.ServerSequential, server, "first-listed server wins score ties")
}

func TestSelectOptimalServer_ComplexityTerm(t *testing.T) {
	dir := t.TempDir()
	table := &rules.Table{
		Servers: []rules.ServerRule{
			{
				Name: rules.ServerSerena, Category: "symbol_operations", Tier: rules.TierAnalytical,
				BaseWeight: 0.2,
				Triggers:   []rules.Trigger{{Operations: []string{"analysis"}}},
			},
			{
				Name: rules.ServerSequential, Category: "analysis", Tier: rules.TierAnalytical,
				BaseWeight: 0.2, ComplexityWeight: 0.5,
				Triggers: []rules.Trigger{{Operations: []string{"analysis"}}},
			},
		},
		Scoring:      &rules.Scoring{MatchWeight: 1.0, MinScore: 0.5, DominanceMargin: 0.6},
		Coordination: &rules.Coordination{DefaultStrategy: "general"},
	}
	require.NoError(t, rules.Save(table, filepath.Join(dir, rules.TableServers+".yml")))
	engine := New(cache.New(dir))

	// At zero complexity the servers tie and the first-listed wins; a
	// complex task tips the complexity-sensitive server ahead.
	simple := task.MustNew(map[string]interface{}{task.KeyOperationType: "analysis"})
	server, err := engine.SelectOptimalServer("", simple)
	require.NoError(t, err)
	assert.Equal(t, rules.ServerSerena, server)

	complexTask := task.MustNew(map[string]interface{}{
		task.KeyOperationType:   "analysis",
		task.KeyComplexityScore: 0.9,
	})
	server, err = engine.SelectOptimalServer("", complexTask)
	require.NoError(t, err)
	assert.Equal(t, rules.ServerSequential, server)
}

func TestSelectOptimalServer_PropagatesConfigErrors(t *testing.T) {
	engine := New(cache.New(t.TempDir()))
	tc := task.MustNew(map[string]interface{}{task.KeyOperationType: "analysis"})

	_, err := engine.SelectOptimalServer("", tc)
	require.Error(t, err)
	assert.True(t, cache.IsNotFound(err), "configuration errors must surface unchanged")
}

func TestRecommendations_E2ETesting(t *testing.T) {
	engine := newTestEngine(t)
	tc := task.MustNew(map[string]interface{}{
		task.KeyToolName:      "test",
		task.KeyOperationType: "testing",
		task.KeyTestType:      "e2e",
	})

	rec, err := engine.Recommendations(tc)
	require.NoError(t, err)
	assert.Contains(t, rec.Servers, rules.ServerPlaywright)
}

func TestRecommendations_PatternUpdate(t *testing.T) {
	engine := newTestEngine(t)
	tc := task.MustNew(map[string]interface{}{
		task.KeyFileCount:     20,
		task.KeyPatternType:   "import_statements",
		task.KeyOperationType: "pattern_update",
	})

	rec, err := engine.Recommendations(tc)
	require.NoError(t, err)
	assert.Contains(t, rec.Servers, rules.ServerMorphllm)
	assert.Contains(t, rec.Servers, rules.ServerSerena)

	assert.Greater(t, rec.EfficiencyGains["token_savings"], 0.0)
	assert.Greater(t, rec.EfficiencyGains["manual_iterations_saved"], 0.0)
}

func TestRecommendations_DominantCategoryStrategy(t *testing.T) {
	engine := newTestEngine(t)

	tc := task.MustNew(map[string]interface{}{
		task.KeyOperationType: "ui_component",
	})
	rec, err := engine.Recommendations(tc)
	require.NoError(t, err)
	require.Equal(t, []rules.ServerName{rules.ServerMagic}, rec.Servers)
	assert.Equal(t, "ui_generation", rec.Strategy)
}

func TestRecommendations_NoDominantCategoryFallsBack(t *testing.T) {
	engine := newTestEngine(t)

	// morphllm and serena both match with one server per category: a tie,
	// so the default strategy applies.
	tc := task.MustNew(map[string]interface{}{
		task.KeyPatternType:   "import_statements",
		task.KeyOperationType: "pattern_update",
	})
	rec, err := engine.Recommendations(tc)
	require.NoError(t, err)
	require.Len(t, rec.Servers, 2)
	assert.Equal(t, "general", rec.Strategy)
}

func TestRecommendations_EmptyContext(t *testing.T) {
	engine := newTestEngine(t)
	rec, err := engine.Recommendations(task.Context{})
	require.NoError(t, err)
	assert.Empty(t, rec.Servers)
	assert.Equal(t, "general", rec.Strategy)
}

func TestMatches_TriggerSemantics(t *testing.T) {
	rule := rules.ServerRule{
		Name: rules.ServerPlaywright,
		Triggers: []rules.Trigger{
			{Tools: []string{"test"}, Operations: []string{"testing"}},
		},
	}

	both := task.MustNew(map[string]interface{}{
		task.KeyToolName:      "test",
		task.KeyOperationType: "testing",
	})
	assert.True(t, Matches(rule, "", both), "all conditions inside a trigger must hold")

	toolOnly := task.MustNew(map[string]interface{}{task.KeyToolName: "test"})
	assert.False(t, Matches(rule, "", toolOnly), "a partially satisfied trigger must not fire")

	// An explicit tool name overrides the context attribute.
	opOnly := task.MustNew(map[string]interface{}{task.KeyOperationType: "testing"})
	assert.True(t, Matches(rule, "test", opOnly))
}

func TestMatches_MinFileCount(t *testing.T) {
	rule := rules.ServerRule{
		Name:     rules.ServerMorphllm,
		Triggers: []rules.Trigger{{IntentKeywords: []string{"bulk"}, MinFileCount: 3}},
	}

	few := task.MustNew(map[string]interface{}{task.KeyUserIntent: "bulk update", task.KeyFileCount: 2})
	assert.False(t, Matches(rule, "", few))

	many := task.MustNew(map[string]interface{}{task.KeyUserIntent: "bulk update", task.KeyFileCount: 12})
	assert.True(t, Matches(rule, "", many))
}
