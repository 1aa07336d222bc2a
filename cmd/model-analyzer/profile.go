package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/DmytroBabenko/model-analyzer/internal/config"
	"github.com/DmytroBabenko/model-analyzer/internal/generate"
	"github.com/DmytroBabenko/model-analyzer/internal/logging"
	"github.com/DmytroBabenko/model-analyzer/internal/metrics"
	"github.com/DmytroBabenko/model-analyzer/internal/profiler"
)

type profileOptions struct {
	configFile          string
	verbosity           int
	devLogging          bool
	metricsAddr         string
	measurementEndpoint string
	measurementTimeout  time.Duration
	dryRun              bool
}

func newProfileCommand() *cobra.Command {
	opts := &profileOptions{}

	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Run a measurement-driven sweep over the configured models",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProfile(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.configFile, "config-file", "f", "", "path to the profile config YAML (required)")
	cmd.Flags().IntVar(&opts.verbosity, "verbosity", logging.INFO, "log verbosity (0=info, 1=debug, 2=verbose, 3=trace)")
	cmd.Flags().BoolVar(&opts.devLogging, "dev-logging", false, "use the human-readable console log encoder")
	cmd.Flags().StringVar(&opts.metricsAddr, "metrics-addr", "", "address to serve /metrics on (disabled when empty)")
	cmd.Flags().StringVar(&opts.measurementEndpoint, "measurement-endpoint", "", "HTTP endpoint that profiles one run config and returns its throughput")
	cmd.Flags().DurationVar(&opts.measurementTimeout, "measurement-timeout", 10*time.Minute, "timeout for a single measurement request")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "enumerate the full sweep without measuring")
	_ = cmd.MarkFlagRequired("config-file")

	return cmd
}

func runProfile(parent context.Context, opts *profileOptions) error {
	if !opts.dryRun && opts.measurementEndpoint == "" {
		return fmt.Errorf("either --measurement-endpoint or --dry-run is required")
	}

	log, err := logging.NewLogger(opts.verbosity, opts.devLogging)
	if err != nil {
		return err
	}

	profile, err := config.Load(opts.configFile)
	if err != nil {
		return err
	}
	specs, err := profile.SearchSpecs()
	if err != nil {
		return err
	}

	gen, err := generate.NewRunConfigGenerator(specs, log)
	if err != nil {
		return err
	}

	var emitter *metrics.Emitter
	if opts.metricsAddr != "" {
		registry := prometheus.NewRegistry()
		emitter, err = metrics.InitMetricsAndEmitter(registry)
		if err != nil {
			return err
		}
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
		go func() {
			if serveErr := http.ListenAndServe(opts.metricsAddr, mux); serveErr != nil {
				log.Error(serveErr, "metrics server stopped", "addr", opts.metricsAddr)
			}
		}()
		log.Info("serving metrics", "addr", opts.metricsAddr)
	}

	measurer := newMeasurer(opts)

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	report, err := profiler.NewProfiler(gen, measurer, log, emitter).Profile(ctx)
	if err != nil {
		return err
	}
	printReport(report, opts.dryRun)
	return nil
}

func newMeasurer(opts *profileOptions) profiler.Measurer {
	if opts.dryRun {
		return newEnumerationMeasurer()
	}
	return newHTTPMeasurer(opts.measurementEndpoint, opts.measurementTimeout)
}

func printReport(report *profiler.Report, dryRun bool) {
	fmt.Printf("profiled %d run configs (%d failed measurements)\n",
		report.TotalConfigs, report.FailedMeasurements)
	for _, s := range report.ModelSweeps {
		fmt.Printf("  model %s: %d configs generated, %d early backoffs\n",
			s.ModelName, s.Generated, s.Backoffs)
	}
	if dryRun || report.BestConfig == nil {
		return
	}
	fmt.Printf("best throughput %.2f infer/sec with %s\n",
		report.BestThroughput, report.BestConfig.Key())
}
