// File: cmd/present.go
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/xkilldash9x/stimulus-cli/internal/config"
	"github.com/xkilldash9x/stimulus-cli/internal/library"
	"github.com/xkilldash9x/stimulus-cli/internal/observability"
	"github.com/xkilldash9x/stimulus-cli/internal/presentation"
	"github.com/xkilldash9x/stimulus-cli/internal/reporting"
	"github.com/xkilldash9x/stimulus-cli/internal/stimulus"
)

// presentOptions are the flags shared by present and browse.
type presentOptions struct {
	headless    bool
	keys        []string
	output      string
	format      string
	metricsFile string
	sink        string
}

func (o *presentOptions) bind(fs *pflag.FlagSet) {
	fs.BoolVar(&o.headless, "headless", false, "Present on an off-screen surface instead of the terminal")
	fs.StringSliceVar(&o.keys, "keys", nil, "Scripted key presses for headless runs, as frame:key pairs (e.g. 30:space,90:enter)")
	fs.StringVarP(&o.output, "output", "o", "", "Report output file. If unset, the report is printed to stdout.")
	fs.StringVarP(&o.format, "format", "f", "", "Report format: json, yaml or text (default from presentation.default_format)")
	fs.StringVar(&o.metricsFile, "metrics-file", "", "Write presentation metrics in Prometheus textfile format to this path")
	fs.StringVar(&o.sink, "sink", "", "Results sink for this run: none, postgres or sqlite (default from results.sink)")
}

func newPresentCmd(deps *dependencies) *cobra.Command {
	var opts presentOptions

	presentCmd := &cobra.Command{
		Use:   "present <address>",
		Short: "Present a saved spec and record the key responses",
		Long: `Loads a spec from the library by address (or unique address prefix), presents it
for every repetition and writes a run report. Pressing the spec's skip key ends the run early.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := getConfigFromContext(ctx)
			if err != nil {
				return err
			}
			lib, err := openLibrary(cfg)
			if err != nil {
				return err
			}
			entry, err := lib.Load(args[0])
			if err != nil {
				return err
			}
			_, err = runPresentation(ctx, cmd.OutOrStdout(), deps, cfg, entry, opts)
			return err
		},
	}
	opts.bind(presentCmd.Flags())
	return presentCmd
}

// parseKeyScript turns frame:key pairs into scripted presses.
func parseKeyScript(pairs []string) (map[int]stimulus.Key, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	keys := make(map[int]stimulus.Key, len(pairs))
	for _, pair := range pairs {
		frameText, keyText, ok := strings.Cut(pair, ":")
		if !ok {
			return nil, fmt.Errorf("invalid key press %q: want frame:key", pair)
		}
		frame, err := strconv.Atoi(strings.TrimSpace(frameText))
		if err != nil || frame < 1 {
			return nil, fmt.Errorf("invalid key press %q: frame must be a positive integer", pair)
		}
		key, err := stimulus.ParseKey(keyText)
		if err != nil {
			return nil, fmt.Errorf("invalid key press %q: %w", pair, err)
		}
		keys[frame] = key
	}
	return keys, nil
}

// runPresentation presents entry and delivers the report to the configured
// outputs: the reporter, the results directory, the sink and the metrics file.
func runPresentation(ctx context.Context, out io.Writer, deps *dependencies, cfg config.Interface, entry *library.Entry, opts presentOptions) (*reporting.Report, error) {
	logger := observability.GetLogger()

	format := opts.format
	if format == "" {
		format = cfg.Presentation().DefaultFormat
	}
	keys, err := parseKeyScript(opts.keys)
	if err != nil {
		return nil, err
	}
	if opts.headless {
		cfg.SetDisplayBackend(config.BackendHeadless)
	}
	if opts.sink != "" {
		cfg.SetResultsSink(opts.sink)
		results := cfg.Results()
		if err := results.Validate(cfg.Database()); err != nil {
			return nil, fmt.Errorf("invalid --sink: %w", err)
		}
	}
	headless := cfg.Display().Backend == config.BackendHeadless
	if len(keys) > 0 && !headless {
		return nil, errors.New("--keys requires a headless display")
	}
	if err := entry.Spec.Validate(); err != nil {
		return nil, err
	}

	reporter, err := reporting.NewTo(format, opts.output, out)
	if err != nil {
		return nil, err
	}
	defer func() { _ = reporter.Close() }()

	sink, closeSink, err := deps.sinks.Create(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize results sink: %w", err)
	}
	if closeSink != nil {
		defer closeSink()
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	surface, closeSurface, err := deps.surfaces.Open(runCtx, cfg, surfaceRequest{Headless: headless, Keys: keys, Interrupt: cancel})
	if err != nil {
		return nil, err
	}

	metrics := observability.NewPresentationMetrics()
	scheduler := presentation.New(surface, logger.Named("presentation"), presentation.WithObserver(metrics))
	res := scheduler.Run(runCtx, entry.Spec)
	if closeSurface != nil {
		closeSurface()
	}

	report := reporting.FromResult(entry.Spec, entry.Address.String(), res)
	runLog := observability.RunLogger(report.RunID, report.SpecAddress)

	if err := reporter.Write(report); err != nil {
		return report, fmt.Errorf("failed to write report: %w", err)
	}

	// An interrupted run is still recorded.
	saveCtx := context.WithoutCancel(ctx)
	if cfg.Results().WriteFiles {
		path, err := reporting.WriteFile(cfg.Results().Dir, report)
		if err != nil {
			return report, err
		}
		runLog.Info("Results file written", zap.String("path", path))
	}
	if sink != nil {
		if err := sink.PersistRun(saveCtx, report); err != nil {
			return report, fmt.Errorf("failed to persist run: %w", err)
		}
		runLog.Info("Run persisted", zap.String("sink", cfg.Results().Sink))
	}

	metricsFile := opts.metricsFile
	if metricsFile == "" {
		metricsFile = cfg.Presentation().MetricsFile
	}
	if metricsFile != "" {
		if err := metrics.WriteTextfile(metricsFile); err != nil {
			return report, err
		}
		runLog.Debug("Metrics written", zap.String("path", metricsFile))
	}
	return report, nil
}
