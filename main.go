package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/term"

	"github.com/mkmtelecom/outagemon/internal/cli"
	"github.com/mkmtelecom/outagemon/internal/config"
	"github.com/mkmtelecom/outagemon/internal/event"
	"github.com/mkmtelecom/outagemon/internal/log"
	"github.com/mkmtelecom/outagemon/internal/metrics"
	"github.com/mkmtelecom/outagemon/internal/notify"
	"github.com/mkmtelecom/outagemon/internal/poller"
	"github.com/mkmtelecom/outagemon/internal/probe"
	"github.com/mkmtelecom/outagemon/internal/report"
	"github.com/mkmtelecom/outagemon/internal/state"
	"github.com/mkmtelecom/outagemon/internal/ui"
)

const version = "0.1.0"

const fallbackColumns = 100

func main() {
	var (
		flagInterval      cli.OptionalDuration
		flagTimeout       cli.OptionalDuration
		flagLoss          cli.OptionalInt
		flagRecovery      cli.OptionalInt
		flagEventsFile    cli.OptionalString
		flagReportFile    cli.OptionalString
		flagMetricsListen cli.OptionalString
		flagNoUI          cli.OptionalBool
		flagRegenReport   bool
		flagVersion       bool
		flagVersionShort  bool
	)

	flag.Var(&flagInterval, "interval", "time between ticks, e.g. 1s (override config)")
	flag.Var(&flagInterval, "i", "time between ticks, e.g. 1s (override config)")
	flag.Var(&flagTimeout, "timeout", "probe timeout (override config)")
	flag.Var(&flagTimeout, "t", "probe timeout (override config)")
	flag.Var(&flagLoss, "loss", "consecutive failures to declare an outage")
	flag.Var(&flagRecovery, "recovery", "consecutive successes to clear an outage")
	flag.Var(&flagEventsFile, "events-file", "path of the outage events JSON file")
	flag.Var(&flagReportFile, "report-file", "path of the HTML report")
	flag.Var(&flagMetricsListen, "metrics-listen", "metrics listen address (e.g. :9100)")
	flag.Var(&flagNoUI, "no-ui", "disable the dashboard (log only)")
	flag.BoolVar(&flagRegenReport, "regen-report", false, "rebuild the HTML report from the events file and exit")
	flag.BoolVar(&flagVersion, "version", false, "show version")
	flag.BoolVar(&flagVersionShort, "v", false, "show version")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s [options] <config-file>\n\n", os.Args[0])
		fmt.Fprintln(os.Stderr, "Options:")
		flag.PrintDefaults()
	}

	flag.Parse()

	if flagVersion || flagVersionShort {
		fmt.Fprintf(os.Stdout, "outagemon version %s\n", version)
		return
	}

	overrides := buildOverrides(flagInterval, flagTimeout, flagLoss, flagRecovery, flagEventsFile, flagReportFile, flagMetricsListen, flagNoUI)

	if flagRegenReport {
		if err := regenReport(flag.Args(), overrides); err != nil {
			fmt.Fprintf(os.Stderr, "failed to regenerate report: %v\n", err)
			os.Exit(1)
		}
		return
	}

	args := flag.Args()
	if len(args) < 1 {
		flag.Usage()
		os.Exit(1)
	}
	configPath := args[0]

	logger := log.NewLogger(log.ParseLevel(os.Getenv("OUTAGEMON_LOG_LEVEL")))

	parser := config.OutagemonParser{}
	cfg, err := parser.LoadConfig(configPath, overrides)
	if err != nil {
		logger.LogConfigLoad(false, configPath, err)
		os.Exit(1)
	}
	logger.LogConfigLoad(true, configPath, nil)

	if len(cfg.Targets) == 0 {
		fmt.Fprintln(os.Stderr, "no targets configured")
		os.Exit(1)
	}

	if cfg.Global.LogFile != "" {
		f, err := os.OpenFile(cfg.Global.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to open log file: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		logger.SetOutput(f)
	}

	if err := run(cfg, logger); err != nil && err != context.Canceled {
		logger.LogError("main", err, nil)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *log.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	prober := buildProber(logger)

	thresholds := state.Thresholds{
		Loss:     cfg.Global.LossThreshold,
		Recovery: cfg.Global.RecoveryThreshold,
	}
	store := state.NewStore(cfg.Targets, thresholds, state.CapacityForWidth(terminalColumns()))

	eventLog, err := event.OpenLog(cfg.Global.EventsFile)
	if err != nil {
		return err
	}
	reporter := report.New(cfg.Global.ReportFile)

	var mailer *notify.Mailer
	if cfg.Global.AlertsFile != "" {
		settings, err := notify.LoadSettings(cfg.Global.AlertsFile)
		if err != nil {
			logger.LogError("notify", err, map[string]interface{}{"path": cfg.Global.AlertsFile})
		} else if settings.Enabled() {
			mailer = notify.NewMailer(settings)
		}
	}

	sink := &eventRecorder{
		log:      eventLog,
		reporter: reporter,
		mailer:   mailer,
		logger:   logger,
	}

	p := poller.New(cfg.Global, cfg.Targets, prober, store, sink, logger)
	go func() {
		_ = p.Run(ctx)
	}()

	if cfg.Global.MetricsListen != "" {
		go func() {
			if err := metrics.Serve(ctx, cfg.Global.MetricsListen, store, eventLog); err != nil && err != context.Canceled {
				logger.LogError("metrics", err, map[string]interface{}{"listen": cfg.Global.MetricsListen})
			}
		}()
	}

	if cfg.Global.UIDisable {
		<-ctx.Done()
		return ctx.Err()
	}

	err = ui.New(cfg.Global, store).Run(ctx)
	cancel()
	return err
}

func buildProber(logger *log.Logger) probe.Prober {
	system := probe.NewSystemProber()
	icmp, err := probe.NewICMPProber()
	if err != nil {
		logger.LogError("probe", err, nil)
		return system
	}
	return probe.NewFallbackProber(icmp, system)
}

func regenReport(args []string, overrides config.CLIOverrides) error {
	global := config.DefaultGlobalOptions()
	if len(args) > 0 {
		parser := config.OutagemonParser{}
		cfg, err := parser.LoadConfig(args[0], overrides)
		if err != nil {
			return err
		}
		global = cfg.Global
	} else {
		if overrides.EventsFile != nil {
			global.EventsFile = *overrides.EventsFile
		}
		if overrides.ReportFile != nil {
			global.ReportFile = *overrides.ReportFile
		}
	}

	eventLog, err := event.OpenLog(global.EventsFile)
	if err != nil {
		return err
	}
	if err := report.New(global.ReportFile).Generate(eventLog.Events()); err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "report regenerated from %d events\n", eventLog.Len())
	return nil
}

// eventRecorder appends completed outages to the event log, refreshes the
// HTML report, and fires the optional email notification. All of it is best
// effort so a sink failure never stalls the poll loop.
type eventRecorder struct {
	log      *event.Log
	reporter *report.Generator
	mailer   *notify.Mailer
	logger   *log.Logger
}

func (r *eventRecorder) Append(ev event.Outage) error {
	err := r.log.Append(ev)

	if reportErr := r.reporter.Generate(r.log.Events()); reportErr != nil {
		r.logger.LogError("report", reportErr, map[string]interface{}{"path": r.reporter.Path()})
	}

	if r.mailer != nil {
		go func() {
			if mailErr := r.mailer.NotifyOutage(context.Background(), ev); mailErr != nil {
				r.logger.LogError("notify", mailErr, map[string]interface{}{"target": ev.Target})
			}
		}()
	}

	return err
}

func terminalColumns() int {
	cols, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || cols <= 0 {
		return fallbackColumns
	}
	return cols
}

func buildOverrides(
	interval cli.OptionalDuration,
	timeout cli.OptionalDuration,
	loss cli.OptionalInt,
	recovery cli.OptionalInt,
	eventsFile cli.OptionalString,
	reportFile cli.OptionalString,
	metricsListen cli.OptionalString,
	noUI cli.OptionalBool,
) config.CLIOverrides {
	overrides := config.CLIOverrides{}

	if v, ok := interval.Value(); ok {
		value := v
		overrides.Interval = &value
	}
	if v, ok := timeout.Value(); ok {
		value := v
		overrides.Timeout = &value
	}
	if v, ok := loss.Value(); ok {
		value := v
		overrides.LossThreshold = &value
	}
	if v, ok := recovery.Value(); ok {
		value := v
		overrides.RecoveryThreshold = &value
	}
	if v, ok := eventsFile.Value(); ok && v != "" {
		value := v
		overrides.EventsFile = &value
	}
	if v, ok := reportFile.Value(); ok && v != "" {
		value := v
		overrides.ReportFile = &value
	}
	if v, ok := metricsListen.Value(); ok && v != "" {
		value := v
		overrides.MetricsListen = &value
	}
	if v, ok := noUI.Value(); ok {
		value := v
		overrides.UIDisable = &value
	}

	return overrides
}
