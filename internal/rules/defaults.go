package rules

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"superclaude/internal/task"
)

// DefaultServersTable returns the built-in servers table. Declaration
// order here is load-bearing: it breaks score ties and fixes
// recommendation order.
func DefaultServersTable() *Table {
	return &Table{
		Version: "1.0",
		Servers: []ServerRule{
			{
				Name:       ServerContext7,
				Category:   "docs",
				Tier:       TierFoundational,
				BaseWeight: 0.12,
				Triggers: []Trigger{
					{Flags: []string{task.KeyHasExternalDeps}},
					{Operations: []string{"docs_lookup", "dependency_resolution"}},
					{IntentKeywords: []string{"library", "framework", "documentation", "official docs", "dependency"}},
				},
				Gains: map[string]float64{"token_savings": 1200, "manual_iterations_saved": 1},
			},
			{
				Name:             ServerSequential,
				Category:         "analysis",
				Tier:             TierAnalytical,
				BaseWeight:       0.10,
				ComplexityWeight: 0.50,
				Triggers: []Trigger{
					{Operations: []string{"analysis", "debugging", "troubleshooting"}},
					{IntentKeywords: []string{"analyze", "debug", "investigate", "architecture", "root cause"}},
				},
				Gains: map[string]float64{"token_savings": 900, "manual_iterations_saved": 2},
			},
			{
				Name:       ServerMagic,
				Category:   "ui_generation",
				Tier:       TierPresentation,
				BaseWeight: 0.15,
				Triggers: []Trigger{
					{Operations: []string{"ui_component", "ui_generation"}},
					{Flags: []string{task.KeyHasUIComponents}},
					{IntentKeywords: []string{"form", "component", "button", "dialog", "modal", "frontend", " ui "}},
				},
				DependsOn: []ServerName{ServerContext7},
				Gains:     map[string]float64{"token_savings": 2000, "manual_iterations_saved": 3},
			},
			{
				Name:       ServerPlaywright,
				Category:   "e2e_testing",
				Tier:       TierPresentation,
				BaseWeight: 0.11,
				Triggers: []Trigger{
					{Attrs: map[string]string{task.KeyTestType: "e2e"}},
					{Operations: []string{"e2e_testing", "browser_testing"}},
					{IntentKeywords: []string{"e2e", "end-to-end", "browser test", "visual regression"}},
				},
				DependsOn: []ServerName{ServerContext7},
				Gains:     map[string]float64{"token_savings": 800, "manual_iterations_saved": 2},
			},
			{
				Name:       ServerMorphllm,
				Category:   "pattern_application",
				Tier:       TierTransformational,
				BaseWeight: 0.13,
				Triggers: []Trigger{
					{Operations: []string{"pattern_update", "bulk_edit"}},
					{Flags: []string{task.KeyPatternBased}},
					{IntentKeywords: []string{"apply pattern", "across files", "bulk", "migrate"}, MinFileCount: 3},
				},
				Gains: map[string]float64{"token_savings": 2500, "manual_iterations_saved": 4},
			},
			{
				Name:             ServerSerena,
				Category:         "symbol_operations",
				Tier:             TierAnalytical,
				BaseWeight:       0.14,
				ComplexityWeight: 0.20,
				Triggers: []Trigger{
					{Operations: []string{"symbol_operations", "rename_symbol", "refactor"}},
					{Attrs: map[string]string{task.KeyPatternType: "import_statements"}},
					{IntentKeywords: []string{"symbol", "reference", "rename", "definition", "call site"}},
				},
				Gains: map[string]float64{"token_savings": 1800, "manual_iterations_saved": 2},
			},
		},
		Scoring: &Scoring{
			MatchWeight:     1.0,
			MinScore:        0.5,
			DominanceMargin: 0.6,
		},
		Coordination: &Coordination{
			OverheadMs: 25,
			BaselineMs: 450,
			Strategies: map[string]string{
				"docs":                "dependency_grounding",
				"analysis":            "deep_analysis",
				"ui_generation":       "ui_generation",
				"e2e_testing":         "e2e_testing",
				"pattern_application": "pattern_application",
				"symbol_operations":   "symbol_operations",
			},
			DefaultStrategy: "general",
		},
	}
}

// DefaultPerformanceTable returns the built-in performance targets.
func DefaultPerformanceTable() *Table {
	return &Table{
		Version: "1.0",
		Targets: map[string]PerformanceTarget{
			"default":    {BaseCostMs: 100, TimeoutMs: 5000},
			"context7":   {BaseCostMs: 120, TimeoutMs: 8000},
			"sequential": {BaseCostMs: 180, TimeoutMs: 10000},
			"magic":      {BaseCostMs: 150, TimeoutMs: 8000},
			"playwright": {BaseCostMs: 250, TimeoutMs: 15000},
			"morphllm":   {BaseCostMs: 90, TimeoutMs: 6000},
			"serena":     {BaseCostMs: 110, TimeoutMs: 6000},
		},
	}
}

// DefaultCompressionTable returns the built-in compression levels.
func DefaultCompressionTable() *Table {
	return &Table{
		Version: "1.0",
		Levels: []CompressionLevel{
			{Name: "minimal", Ratio: 0.95, MinScore: 0.0, Description: "Full detail, persona-aware"},
			{Name: "efficient", Ratio: 0.75, MinScore: 0.4, Description: "Trimmed boilerplate"},
			{Name: "compressed", Ratio: 0.55, MinScore: 0.7, Description: "Symbol-first output"},
			{Name: "critical", Ratio: 0.35, MinScore: 0.85, Description: "Essentials only"},
			{Name: "emergency", Ratio: 0.20, MinScore: 0.95, Description: "Maximum compression"},
		},
	}
}

// DefaultHooksTable returns the built-in hook sections. Deliberately
// sparse: hook names without a section fall back to caller defaults.
func DefaultHooksTable() *Table {
	return &Table{
		Version: "1.0",
		Hooks: map[string]HookConfig{
			"pre_tool_use": {
				Enabled:   true,
				TimeoutMs: 150,
				Servers:   []ServerName{ServerContext7, ServerSequential},
			},
			"post_tool_use": {
				Enabled:   true,
				TimeoutMs: 100,
			},
			"session_start": {
				Enabled:   true,
				TimeoutMs: 500,
				Servers:   []ServerName{ServerContext7},
			},
		},
	}
}

// DefaultTables maps every well-known table name to its built-in content.
func DefaultTables() map[string]*Table {
	return map[string]*Table{
		TableServers:     DefaultServersTable(),
		TablePerformance: DefaultPerformanceTable(),
		TableCompression: DefaultCompressionTable(),
		TableHooks:       DefaultHooksTable(),
	}
}

// Save writes a table to a YAML file.
func Save(t *Table, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create rules directory: %w", err)
	}
	data, err := yaml.Marshal(t)
	if err != nil {
		return fmt.Errorf("failed to marshal table: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write table: %w", err)
	}
	return nil
}

// WriteDefaults materializes every default table into dir as
// <name>.yml, overwriting existing files.
func WriteDefaults(dir string) error {
	for name, table := range DefaultTables() {
		if err := Save(table, filepath.Join(dir, name+".yml")); err != nil {
			return err
		}
	}
	return nil
}
