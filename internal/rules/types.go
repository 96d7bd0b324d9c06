// Package rules holds the declarative tables that drive capability server
// selection: trigger predicates, scoring weights, coordination templates,
// and performance targets. Tables are YAML documents, one per table name,
// and are only ever consumed through the configuration cache.
package rules

// ServerName identifies one capability server. The set of valid names is
// a closed enumeration; tables naming anything else fail validation.
type ServerName string

const (
	ServerContext7   ServerName = "context7"   // Library docs and dependency resolution
	ServerSequential ServerName = "sequential" // Multi-step reasoning and analysis
	ServerSerena     ServerName = "serena"     // Symbol-aware semantic operations
	ServerMorphllm   ServerName = "morphllm"   // Pattern-based multi-file edits
	ServerMagic      ServerName = "magic"      // UI component generation
	ServerPlaywright ServerName = "playwright" // Browser-driven e2e testing
)

// KnownServers enumerates every valid server tag in a stable order.
var KnownServers = []ServerName{
	ServerContext7,
	ServerSequential,
	ServerSerena,
	ServerMorphllm,
	ServerMagic,
	ServerPlaywright,
}

// Tier fixes the activation precedence of a server within a plan.
// Foundational servers run before analytical, analytical before
// transformational, transformational before presentation.
type Tier string

const (
	TierFoundational     Tier = "foundational"
	TierAnalytical       Tier = "analytical"
	TierTransformational Tier = "transformational"
	TierPresentation     Tier = "presentation"
)

// Rank returns the ordering position of the tier; lower runs first.
func (t Tier) Rank() int {
	switch t {
	case TierFoundational:
		return 0
	case TierAnalytical:
		return 1
	case TierTransformational:
		return 2
	case TierPresentation:
		return 3
	}
	return 4
}

// Strategy labels how the servers in an activation plan coordinate.
type Strategy string

const (
	StrategyNone            Strategy = "none"
	StrategySequential      Strategy = "sequential"
	StrategyParallel        Strategy = "parallel"
	StrategyPrimaryFallback Strategy = "primary-with-fallback"
)

// Trigger is one predicate over task context attributes. All specified
// conditions must hold for the trigger to fire; a server matches when any
// of its triggers fire. A trigger with no conditions never fires.
type Trigger struct {
	// Tools matches the tool name against any listed value.
	Tools []string `yaml:"tools,omitempty"`

	// Operations matches the operation_type attribute.
	Operations []string `yaml:"operations,omitempty"`

	// Flags lists boolean attributes that must all be true.
	Flags []string `yaml:"flags,omitempty"`

	// IntentKeywords are case-insensitive substrings of user_intent;
	// any one suffices.
	IntentKeywords []string `yaml:"intent_keywords,omitempty"`

	// Attrs matches arbitrary string attributes exactly (name -> value).
	Attrs map[string]string `yaml:"attrs,omitempty"`

	// MinFileCount requires file_count >= this value when > 0.
	MinFileCount int `yaml:"min_file_count,omitempty"`
}

// Empty reports whether the trigger carries no conditions at all.
func (t Trigger) Empty() bool {
	return len(t.Tools) == 0 && len(t.Operations) == 0 && len(t.Flags) == 0 &&
		len(t.IntentKeywords) == 0 && len(t.Attrs) == 0 && t.MinFileCount == 0
}

// ServerRule is the full declarative record for one capability server.
// Declaration order within the table is significant: it breaks score ties
// and fixes recommendation order.
type ServerRule struct {
	Name     ServerName `yaml:"name"`
	Category string     `yaml:"category"`
	Tier     Tier       `yaml:"tier"`

	// BaseWeight is added to every score for this server.
	BaseWeight float64 `yaml:"base_weight"`

	// ComplexityWeight > 0 marks the server complexity-sensitive; the
	// complexity_score attribute is multiplied in at this weight.
	ComplexityWeight float64 `yaml:"complexity_weight,omitempty"`

	Triggers []Trigger `yaml:"triggers"`

	// DependsOn declares hard ordering edges to other servers. Any edge
	// between two planned servers forces sequential coordination.
	DependsOn []ServerName `yaml:"depends_on,omitempty"`

	// Gains estimates per-metric savings when this server is engaged,
	// relative to the generic no-selection path.
	Gains map[string]float64 `yaml:"gains,omitempty"`
}

// Scoring holds the weights and thresholds of the selection formula.
// These are data, not code: callers must not hard-code them.
type Scoring struct {
	// MatchWeight is added when any trigger fires.
	MatchWeight float64 `yaml:"match_weight"`

	// MinScore is the selection floor; no server above it means no
	// selection, which is a valid outcome.
	MinScore float64 `yaml:"min_score"`

	// DominanceMargin is the score gap over the runner-up at which a
	// plan switches to primary-with-fallback coordination.
	DominanceMargin float64 `yaml:"dominance_margin"`
}

// Coordination maps matched server categories to recommendation strategy
// labels and carries the plan cost model constants.
type Coordination struct {
	// OverheadMs is the fixed coordination overhead added to any
	// non-empty plan.
	OverheadMs float64 `yaml:"overhead_ms"`

	// BaselineMs is the estimated cost of the single generic path an
	// activation plan is measured against.
	BaselineMs float64 `yaml:"baseline_ms"`

	// Strategies maps a dominant server category to a recommendation
	// strategy label.
	Strategies map[string]string `yaml:"strategies"`

	// DefaultStrategy is used when no category dominates.
	DefaultStrategy string `yaml:"default_strategy"`
}

// PerformanceTarget is one named latency target. The target named after a
// server supplies that server's per-activation base cost; the "default"
// target covers servers without one.
type PerformanceTarget struct {
	BaseCostMs float64 `yaml:"base_cost_ms"`
	TimeoutMs  float64 `yaml:"timeout_ms,omitempty"`
}

// CompressionLevel is one discrete level in the compression table.
type CompressionLevel struct {
	Name        string  `yaml:"name"`
	Ratio       float64 `yaml:"ratio"`
	MinScore    float64 `yaml:"min_score,omitempty"`
	Description string  `yaml:"description,omitempty"`
}

// HookConfig is the per-hook sub-section of the hooks table. Not every
// hook name has a section; callers must treat absence as "use defaults".
type HookConfig struct {
	Enabled   bool         `yaml:"enabled"`
	TimeoutMs int          `yaml:"timeout_ms,omitempty"`
	Servers   []ServerName `yaml:"servers,omitempty"`
}

// Table is the parsed form of one rule document. Every table name uses
// the same container type; validation decides which sections a given name
// must populate.
type Table struct {
	Version string `yaml:"version,omitempty"`

	// servers table sections
	Servers      []ServerRule  `yaml:"servers,omitempty"`
	Scoring      *Scoring      `yaml:"scoring,omitempty"`
	Coordination *Coordination `yaml:"coordination,omitempty"`

	// performance table section
	Targets map[string]PerformanceTarget `yaml:"targets,omitempty"`

	// compression table section
	Levels []CompressionLevel `yaml:"levels,omitempty"`

	// hooks table section
	Hooks map[string]HookConfig `yaml:"hooks,omitempty"`
}

// Rule returns the declared rule and declaration index for a server.
func (t *Table) Rule(name ServerName) (ServerRule, int, bool) {
	for i, rule := range t.Servers {
		if rule.Name == name {
			return rule, i, true
		}
	}
	return ServerRule{}, -1, false
}

// Target resolves the performance target for a server, falling back to
// the "default" target.
func (t *Table) Target(name ServerName) (PerformanceTarget, bool) {
	if target, ok := t.Targets[string(name)]; ok {
		return target, true
	}
	target, ok := t.Targets["default"]
	return target, ok
}

// Well-known table names.
const (
	TableServers     = "servers"
	TablePerformance = "performance"
	TableCompression = "compression"
	TableHooks       = "hooks"
)
