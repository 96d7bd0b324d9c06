package rules

import "fmt"

var knownServerSet = func() map[ServerName]bool {
	set := make(map[ServerName]bool, len(KnownServers))
	for _, name := range KnownServers {
		set[name] = true
	}
	return set
}()

// IsKnownServer reports whether name is part of the closed server
// enumeration.
func IsKnownServer(name ServerName) bool {
	return knownServerSet[name]
}

// Validate checks the structural requirements for a table by name.
// Well-known names have schema requirements; any other name is treated
// as an opaque table and passes.
func Validate(name string, t *Table) error {
	if t == nil {
		return fmt.Errorf("table %q: nil table", name)
	}
	switch name {
	case TableServers:
		return validateServers(t)
	case TablePerformance:
		return validatePerformance(t)
	case TableCompression:
		return validateCompression(t)
	case TableHooks:
		return validateHooks(t)
	}
	return nil
}

func validateServers(t *Table) error {
	if len(t.Servers) == 0 {
		return fmt.Errorf("servers table: no servers declared")
	}
	seen := make(map[ServerName]bool, len(t.Servers))
	for i, rule := range t.Servers {
		if !IsKnownServer(rule.Name) {
			return fmt.Errorf("servers table: unknown server tag %q at index %d", rule.Name, i)
		}
		if seen[rule.Name] {
			return fmt.Errorf("servers table: duplicate server %q", rule.Name)
		}
		seen[rule.Name] = true

		if rule.Tier.Rank() > TierPresentation.Rank() {
			return fmt.Errorf("servers table: server %q: unknown tier %q", rule.Name, rule.Tier)
		}
		if rule.BaseWeight < 0 || rule.ComplexityWeight < 0 {
			return fmt.Errorf("servers table: server %q: negative weight", rule.Name)
		}
		if len(rule.Triggers) == 0 {
			return fmt.Errorf("servers table: server %q: no triggers", rule.Name)
		}
		for j, trigger := range rule.Triggers {
			if trigger.Empty() {
				return fmt.Errorf("servers table: server %q: trigger %d has no conditions", rule.Name, j)
			}
		}
		for _, dep := range rule.DependsOn {
			if !IsKnownServer(dep) {
				return fmt.Errorf("servers table: server %q: unknown dependency %q", rule.Name, dep)
			}
			if dep == rule.Name {
				return fmt.Errorf("servers table: server %q depends on itself", rule.Name)
			}
		}
		for metric, gain := range rule.Gains {
			if gain < 0 {
				return fmt.Errorf("servers table: server %q: negative gain for %q", rule.Name, metric)
			}
		}
	}

	if t.Scoring == nil {
		return fmt.Errorf("servers table: missing scoring section")
	}
	if t.Scoring.MatchWeight <= 0 {
		return fmt.Errorf("servers table: scoring.match_weight must be positive")
	}
	if t.Scoring.MinScore < 0 || t.Scoring.DominanceMargin < 0 {
		return fmt.Errorf("servers table: scoring thresholds must be non-negative")
	}

	if t.Coordination == nil {
		return fmt.Errorf("servers table: missing coordination section")
	}
	if t.Coordination.DefaultStrategy == "" {
		return fmt.Errorf("servers table: coordination.default_strategy is required")
	}
	if t.Coordination.OverheadMs < 0 || t.Coordination.BaselineMs < 0 {
		return fmt.Errorf("servers table: coordination costs must be non-negative")
	}
	return nil
}

func validatePerformance(t *Table) error {
	if len(t.Targets) == 0 {
		return fmt.Errorf("performance table: no targets declared")
	}
	for name, target := range t.Targets {
		if target.BaseCostMs <= 0 {
			return fmt.Errorf("performance table: target %q: base_cost_ms must be positive", name)
		}
		if target.TimeoutMs < 0 {
			return fmt.Errorf("performance table: target %q: negative timeout", name)
		}
	}
	return nil
}

func validateCompression(t *Table) error {
	if len(t.Levels) == 0 {
		return fmt.Errorf("compression table: no levels declared")
	}
	seen := make(map[string]bool, len(t.Levels))
	for i, level := range t.Levels {
		if level.Name == "" {
			return fmt.Errorf("compression table: level %d: missing name", i)
		}
		if seen[level.Name] {
			return fmt.Errorf("compression table: duplicate level %q", level.Name)
		}
		seen[level.Name] = true
		if level.Ratio <= 0 || level.Ratio > 1 {
			return fmt.Errorf("compression table: level %q: ratio must be in (0, 1]", level.Name)
		}
	}
	return nil
}

func validateHooks(t *Table) error {
	for hook, cfg := range t.Hooks {
		if hook == "" {
			return fmt.Errorf("hooks table: empty hook name")
		}
		if cfg.TimeoutMs < 0 {
			return fmt.Errorf("hooks table: hook %q: negative timeout", hook)
		}
		for _, server := range cfg.Servers {
			if !IsKnownServer(server) {
				return fmt.Errorf("hooks table: hook %q: unknown server %q", hook, server)
			}
		}
	}
	return nil
}
