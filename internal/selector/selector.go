// Package selector implements the capability server selection engine: a
// pure function of (task context, rule tables) that scores every declared
// server and answers single-best-match and multi-recommendation queries.
// Selection keeps no state of its own; all weights and thresholds come
// from the servers rule table through the configuration cache.
package selector

import (
	"strings"

	"superclaude/internal/cache"
	"superclaude/internal/logging"
	"superclaude/internal/rules"
	"superclaude/internal/task"
)

// Engine scores capability servers against task contexts.
type Engine struct {
	cache *cache.Cache
}

// New creates a selection engine backed by the given configuration cache.
func New(c *cache.Cache) *Engine {
	return &Engine{cache: c}
}

// SelectOptimalServer returns the single best server for a tool
// invocation, or "" when no server clears the configured minimum score.
// No selection is a valid outcome, not an error; errors are only
// configuration failures surfaced from the cache.
//
// Ties resolve to the first-listed server in the rule table.
func (e *Engine) SelectOptimalServer(toolName string, tc task.Context) (rules.ServerName, error) {
	table, err := e.cache.Get(rules.TableServers)
	if err != nil {
		return "", err
	}

	var best rules.ServerName
	bestScore := 0.0
	for _, rule := range table.Servers {
		score := Score(rule, table.Scoring, toolName, tc)
		if score < table.Scoring.MinScore {
			continue
		}
		if best == "" || score > bestScore {
			best = rule.Name
			bestScore = score
		}
	}

	if best == "" {
		logging.Get(logging.CategorySelector).Debug("no server cleared min_score=%.2f for tool %q", table.Scoring.MinScore, toolName)
		return "", nil
	}
	logging.Get(logging.CategorySelector).Debug("selected %s (score=%.3f) for tool %q", best, bestScore, toolName)
	return best, nil
}

// Recommendation is the multi-server answer: every server whose triggers
// match, in rule declaration order, with summed estimated gains and a
// strategy label derived from the dominant matched category.
type Recommendation struct {
	Servers         []rules.ServerName `json:"recommended_servers"`
	EfficiencyGains map[string]float64 `json:"efficiency_gains"`
	Strategy        string             `json:"strategy"`
}

// Recommendations returns all matching servers for a context, independent
// of SelectOptimalServer's single-winner scoring.
func (e *Engine) Recommendations(tc task.Context) (*Recommendation, error) {
	table, err := e.cache.Get(rules.TableServers)
	if err != nil {
		return nil, err
	}

	rec := &Recommendation{EfficiencyGains: make(map[string]float64)}
	categoryCounts := make(map[string]int)
	for _, rule := range table.Servers {
		if !Matches(rule, "", tc) {
			continue
		}
		rec.Servers = append(rec.Servers, rule.Name)
		categoryCounts[rule.Category]++
		for metric, gain := range rule.Gains {
			rec.EfficiencyGains[metric] += gain
		}
	}

	rec.Strategy = strategyFor(table.Coordination, categoryCounts)
	return rec, nil
}

// strategyFor maps the dominant matched category to its strategy label.
// No matches, a tie for dominance, or an unmapped category all fall back
// to the default strategy.
func strategyFor(coord *rules.Coordination, counts map[string]int) string {
	dominant := ""
	dominantCount := 0
	tied := false
	for category, count := range counts {
		switch {
		case count > dominantCount:
			dominant = category
			dominantCount = count
			tied = false
		case count == dominantCount && count > 0:
			tied = true
		}
	}
	if dominant == "" || tied {
		return coord.DefaultStrategy
	}
	if label, ok := coord.Strategies[dominant]; ok {
		return label
	}
	return coord.DefaultStrategy
}

// Score computes the weighted score for one server rule: the match term
// when any trigger fires, a complexity term for complexity-sensitive
// servers, and the declared base weight.
func Score(rule rules.ServerRule, scoring *rules.Scoring, toolName string, tc task.Context) float64 {
	score := rule.BaseWeight
	if Matches(rule, toolName, tc) {
		score += scoring.MatchWeight
	}
	if rule.ComplexityWeight > 0 {
		score += rule.ComplexityWeight * tc.ComplexityScore()
	}
	return score
}

// Matches reports whether any of the rule's triggers fires against the
// context. An explicit toolName overrides the context's tool_name
// attribute; pass "" to use the attribute.
func Matches(rule rules.ServerRule, toolName string, tc task.Context) bool {
	for _, trigger := range rule.Triggers {
		if triggerFires(trigger, toolName, tc) {
			return true
		}
	}
	return false
}

func triggerFires(trigger rules.Trigger, toolName string, tc task.Context) bool {
	if trigger.Empty() {
		return false
	}
	if toolName == "" {
		toolName = tc.ToolName()
	}

	if len(trigger.Tools) > 0 && !containsFold(trigger.Tools, toolName) {
		return false
	}
	if len(trigger.Operations) > 0 && !containsFold(trigger.Operations, tc.OperationType()) {
		return false
	}
	for _, flag := range trigger.Flags {
		if !tc.Bool(flag) {
			return false
		}
	}
	if len(trigger.IntentKeywords) > 0 {
		intent := strings.ToLower(tc.Intent())
		found := false
		for _, keyword := range trigger.IntentKeywords {
			if keyword != "" && strings.Contains(intent, strings.ToLower(keyword)) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	for key, want := range trigger.Attrs {
		got, ok := tc.String(key)
		if !ok || !strings.EqualFold(got, want) {
			return false
		}
	}
	if trigger.MinFileCount > 0 && tc.FileCount() < trigger.MinFileCount {
		return false
	}
	return true
}

func containsFold(values []string, want string) bool {
	for _, v := range values {
		if strings.EqualFold(v, want) {
			return true
		}
	}
	return false
}
