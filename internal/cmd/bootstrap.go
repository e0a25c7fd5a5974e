package cmd

import (
	"github.com/CageChen/layerhub/internal/config"
	"github.com/CageChen/layerhub/internal/finder"
	"github.com/CageChen/layerhub/internal/logger"
	"github.com/CageChen/layerhub/internal/metrics"
	"github.com/CageChen/layerhub/internal/registry"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

// app is what every command needs: the loaded config and a finder built from it.
type app struct {
	cfg     *config.Config
	finder  *finder.Finder
	metrics *prometheus.Registry // nil unless enabled
}

// loadConfig loads the config named by --config and applies --layer and
// the configured log level.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	if !cmd.Flags().Changed("log-level") {
		logger.SetLevel(cfg.Logging.Level)
	}

	if cmd.Flags().Changed("layer") {
		layers, _ := cmd.Flags().GetStringSlice("layer")
		cfg.Layers = nil
		for _, l := range layers {
			if err := cfg.AddLayer(l, ""); err != nil {
				return nil, err
			}
		}
	}
	return cfg, nil
}

// bootstrap loads the config and builds the finder through the service registry.
func bootstrap(cmd *cobra.Command) (*app, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg}
	var opts []finder.Option
	if cfg.Metrics.Enabled {
		a.metrics = metrics.NewRegistry()
		opts = append(opts, finder.WithMetrics(metrics.NewFinderMetrics(a.metrics)))
	}

	r := registry.New()
	registry.RegisterDefaults(r, opts...)
	a.finder, err = r.Finder(registry.Params{
		Paths:            cfg.LayerPaths(),
		DefaultExtension: cfg.DefaultExtension,
		Root:             cfg.Root,
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}
