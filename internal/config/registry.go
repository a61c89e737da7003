package config

import (
	"fmt"

	"reqchain/internal/registry"
	"reqchain/internal/util"
	"reqchain/internal/vars"
)

// BuildRegistry registers every configured chain through the registry's
// validating API, so config-defined steps obey exactly the same rules as
// steps added programmatically. Problems are reported with the chain name
// and the step's 1-based position.
func BuildRegistry(cfg *Config) (*registry.Registry, error) {
	reg := registry.New()
	for _, chainCfg := range cfg.Chains {
		if err := reg.Create(chainCfg.Name); err != nil {
			return nil, fmt.Errorf("chain '%s': %w", chainCfg.Name, err)
		}
		for i, stepCfg := range chainCfg.Steps {
			step := registry.Step{
				Name:    stepCfg.Name,
				Method:  stepCfg.Method,
				URL:     stepCfg.URL,
				Headers: stepCfg.Headers,
				Body:    stepCfg.Body,
			}
			if stepCfg.Extract != nil {
				step.Extract = &registry.Extract{
					Path:     stepCfg.Extract.Path,
					Variable: stepCfg.Extract.Variable,
				}
			}
			if err := reg.AppendStep(chainCfg.Name, step); err != nil {
				return nil, fmt.Errorf("chain '%s' step %d: %w", chainCfg.Name, i+1, err)
			}
		}
	}
	return reg, nil
}

// SeedEnvironment writes the configured variables into env. Values may
// reference process environment variables as $NAME, ${NAME}, or %NAME%.
func SeedEnvironment(cfg *Config, env *vars.Environment) {
	for name, value := range cfg.Variables {
		if name == "" {
			continue
		}
		env.SetString(name, util.ExpandEnv(value))
	}
}
