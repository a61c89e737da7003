package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"reqchain/internal/chain"
	"reqchain/internal/config"
	"reqchain/internal/history"
	"reqchain/internal/httpclient"
	"reqchain/internal/logging"
	"reqchain/internal/registry"
	"reqchain/internal/vars"
)

// engine bundles the collaborators a command works with: the loaded config,
// the registry built from it, a seeded variable environment, the request
// history and the runner on top of them.
type engine struct {
	cfg      *config.Config
	registry *registry.Registry
	env      *vars.Environment
	history  *history.Log
	runner   *chain.Runner
}

// newEngine loads the config file and assembles a fresh engine. The log
// level comes from the config unless --log-level overrides it.
func newEngine(configPath string) (*engine, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	level := cfg.Logging.Level
	if logLevelFlag != "" {
		level = logLevelFlag
	}
	logging.SetupLogging(level)

	reg, err := config.BuildRegistry(cfg)
	if err != nil {
		return nil, err
	}

	env := vars.NewEnvironment()
	config.SeedEnvironment(cfg, env)

	client, err := httpclient.New(&cfg.HTTP, &cfg.Auth)
	if err != nil {
		return nil, err
	}

	log := history.NewLog()
	return &engine{
		cfg:      cfg,
		registry: reg,
		env:      env,
		history:  log,
		runner:   chain.NewRunner(reg, env, log, client),
	}, nil
}

// signalContext returns a context cancelled on SIGINT/SIGTERM so a running
// chain aborts at the next step boundary.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
