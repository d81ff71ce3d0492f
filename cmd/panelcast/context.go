package main

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"panelcast/internal/config"
	"panelcast/internal/history"
	"panelcast/internal/logging"
	"panelcast/internal/media/runner"
	"panelcast/internal/pipeline"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	tools runner.Runner
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		tools:      runner.New(),
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) logger() (*slog.Logger, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	return logger, nil
}

// openHistory returns nil when history is disabled.
func (c *commandContext) openHistory() (*history.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	if !cfg.History.Enabled {
		return nil, nil
	}
	store, err := history.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open run history: %w", err)
	}
	return store, nil
}

func (c *commandContext) withHistory(fn func(*history.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	if !cfg.History.Enabled {
		return errors.New("run history is disabled (history.enabled = false)")
	}
	store, err := c.openHistory()
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(store)
}

// newPipeline wires a runner for cmd. Dry runs skip the history store so
// nothing is created on disk. The returned closer is always non-nil.
func (c *commandContext) newPipeline(cmd *cobra.Command, dryRun bool) (*pipeline.Runner, func(), error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, nil, err
	}
	logger, err := c.logger()
	if err != nil {
		return nil, nil, err
	}

	closer := func() {}
	var opts []pipeline.Option
	if !dryRun {
		store, err := c.openHistory()
		if err != nil {
			return nil, nil, err
		}
		if store != nil {
			opts = append(opts, pipeline.WithHistory(store))
			closer = func() { _ = store.Close() }
		}
	}
	if progress := cmd.ErrOrStderr(); shouldColorize(progress) {
		opts = append(opts, progressOptions(progress)...)
	}
	return pipeline.New(cfg, c.tools, logger, opts...), closer, nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
