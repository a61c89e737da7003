package cli

import (
	"fmt"
	"sort"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"reqchain/internal/config"
	"reqchain/internal/registry"
	"reqchain/internal/template"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the config file, chain definitions and placeholders",
	Long: `Validate checks the config file in three passes: YAML structure and
config rules, per-step validation (method, URL, extraction paths) through
the registry, and a placeholder audit that flags {{name}} references no
seed variable or earlier extraction binds.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		green := color.New(color.FgGreen).SprintFunc()
		yellow := color.New(color.FgYellow).SprintFunc()

		cfg, err := config.LoadConfig(configFlag)
		if err != nil {
			return err
		}
		reg, err := config.BuildRegistry(cfg)
		if err != nil {
			return err
		}

		steps := 0
		for _, name := range reg.List() {
			c, err := reg.Get(name)
			if err != nil {
				return err
			}
			steps += len(c.Steps)
		}
		fmt.Fprintf(out, "%s %s: %d chains, %d steps\n", green("Valid:"), configFlag, len(reg.List()), steps)

		for _, warning := range auditPlaceholders(cfg, reg) {
			fmt.Fprintf(out, "%s %s\n", yellow("warning:"), warning)
		}
		return nil
	},
}

// auditPlaceholders reports placeholders that neither a seed variable nor an
// earlier step's extraction binds. Unbound placeholders are not errors (they
// stay verbatim at run time) but they usually mean a typo or a missing
// extract, so the audit surfaces them.
func auditPlaceholders(cfg *config.Config, reg *registry.Registry) []string {
	seeded := make(map[string]bool, len(cfg.Variables))
	for name := range cfg.Variables {
		seeded[name] = true
	}

	var warnings []string
	reported := make(map[string]bool)
	for _, name := range reg.List() {
		c, err := reg.Get(name)
		if err != nil {
			continue
		}

		bound := make(map[string]bool, len(seeded))
		for k := range seeded {
			bound[k] = true
		}
		for i, step := range c.Steps {
			refs := template.Placeholders(step.URL)
			refs = append(refs, template.Placeholders(step.Body)...)
			headerNames := make([]string, 0, len(step.Headers))
			for h := range step.Headers {
				headerNames = append(headerNames, h)
			}
			sort.Strings(headerNames)
			for _, h := range headerNames {
				refs = append(refs, template.Placeholders(step.Headers[h])...)
			}

			for _, ref := range refs {
				if bound[ref] {
					continue
				}
				warning := fmt.Sprintf("chain '%s' step %d references {{%s}}, which nothing binds before it", name, i+1, ref)
				if !reported[warning] {
					reported[warning] = true
					warnings = append(warnings, warning)
				}
			}
			if step.Extract != nil {
				bound[step.Extract.Variable] = true
			}
		}
	}
	return warnings
}
