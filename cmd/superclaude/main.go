// superclaude is a diagnostic CLI for the capability selection core. It
// loads the rule tables, evaluates a task context against them, and
// prints the resulting selection, recommendation, or activation plan as
// JSON. The hook process protocol is a separate adapter layer and is not
// part of this binary.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"superclaude/internal/cache"
	"superclaude/internal/logging"
	"superclaude/internal/planner"
	"superclaude/internal/rules"
	"superclaude/internal/selector"
	"superclaude/internal/task"
)

var (
	rulesDir    string
	contextPath string
	verbose     bool
)

var rootCmd = &cobra.Command{
	Use:   "superclaude",
	Short: "Capability server selection and activation planning",
	Long: `superclaude decides which capability servers (context7, sequential,
serena, morphllm, magic, playwright) should be engaged for a task,
in what order, and with what coordination strategy.

Decisions are driven entirely by declarative rule tables; use
"superclaude rules init" to materialize the defaults.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return logging.Initialize(verbose)
	},
	SilenceUsage: true,
}

var selectCmd = &cobra.Command{
	Use:   "select <tool-name>",
	Short: "Select the single best server for a tool invocation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tc, err := loadContext()
		if err != nil {
			return err
		}
		engine := selector.New(cache.New(rulesDir))
		server, err := engine.SelectOptimalServer(args[0], tc)
		if err != nil {
			return err
		}
		if server == "" {
			return printJSON(map[string]interface{}{"server": nil})
		}
		return printJSON(map[string]interface{}{"server": server})
	},
}

var recommendCmd = &cobra.Command{
	Use:   "recommend",
	Short: "List every server whose triggers match the context",
	RunE: func(cmd *cobra.Command, args []string) error {
		tc, err := loadContext()
		if err != nil {
			return err
		}
		engine := selector.New(cache.New(rulesDir))
		rec, err := engine.Recommendations(tc)
		if err != nil {
			return err
		}
		return printJSON(rec)
	},
}

var planCmd = &cobra.Command{
	Use:   "plan [server...]",
	Short: "Build an activation plan for candidate servers",
	Long: `Builds an activation plan. With no arguments the candidates are taken
from the recommendation query for the context.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		attrs, err := loadRawContext()
		if err != nil {
			return err
		}
		tc, err := task.New(attrs)
		if err != nil {
			return err
		}

		c := cache.New(rulesDir)
		engine := selector.New(c)

		candidates := make([]rules.ServerName, 0, len(args))
		for _, arg := range args {
			candidates = append(candidates, rules.ServerName(arg))
		}
		if len(candidates) == 0 {
			rec, err := engine.Recommendations(tc)
			if err != nil {
				return err
			}
			candidates = rec.Servers
		}

		plan, err := planner.New(c, engine).CreateActivationPlan(candidates, attrs)
		if err != nil {
			return err
		}
		return printJSON(plan)
	},
}

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Manage the rule tables",
}

var rulesInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default rule tables to the rules directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := rules.WriteDefaults(rulesDir); err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "wrote default tables to %s\n", rulesDir)
		return nil
	},
}

var rulesShowCmd = &cobra.Command{
	Use:   "show <table>",
	Short: "Print a parsed rule table",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		table, err := cache.New(rulesDir).Get(args[0])
		if err != nil {
			return err
		}
		return printJSON(table)
	},
}

func loadRawContext() (map[string]interface{}, error) {
	if contextPath == "" {
		return nil, nil
	}
	data, err := os.ReadFile(contextPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read context file: %w", err)
	}
	var attrs map[string]interface{}
	if err := json.Unmarshal(data, &attrs); err != nil {
		return nil, fmt.Errorf("failed to parse context file: %w", err)
	}
	return attrs, nil
}

func loadContext() (task.Context, error) {
	attrs, err := loadRawContext()
	if err != nil {
		return task.Context{}, err
	}
	return task.New(attrs)
}

func printJSON(v interface{}) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(os.Stdout, string(out))
	return nil
}

func main() {
	rootCmd.PersistentFlags().StringVar(&rulesDir, "rules", ".superclaude/rules", "rule tables directory")
	rootCmd.PersistentFlags().StringVarP(&contextPath, "context", "c", "", "path to a task context JSON file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	rulesCmd.AddCommand(rulesInitCmd, rulesShowCmd)
	rootCmd.AddCommand(selectCmd, recommendCmd, planCmd, rulesCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
