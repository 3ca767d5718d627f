package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"mocal/internal/config"
	"mocal/internal/export"
	"mocal/internal/gcal"
	"mocal/internal/locale"
	appLog "mocal/internal/log"
	"mocal/internal/pipeline"
	"mocal/internal/portal"
	"mocal/internal/web"
)

const (
	exitOK     = 0
	exitRun    = 1
	exitAuth   = 2
	exitConfig = 3
)

// errConfig marks failures that are configuration problems rather than
// pipeline failures, for exit-code mapping.
var errConfig = errors.New("configuration error")

// flagConfig holds CLI flag values.
type flagConfig struct {
	configPath string
	once       bool
	dump       bool
	headful    bool
	consent    bool
	debug      bool
}

func main() {
	os.Exit(run())
}

func run() int {
	flags := parseFlags()
	if flags.debug {
		appLog.SetLevel(appLog.LevelDebug)
	}

	appLog.Info("mocal starting", "version", "0.1.0", "config_path", flags.configPath)

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		return exitConfig
	}
	if flags.headful {
		conf.Headful = true
	}
	if err := conf.Validate(); err != nil {
		appLog.Error("incomplete configuration", err)
		return exitConfig
	}

	loc, err := locale.Resolve(conf.Locale, conf.SelectorOverrides)
	if err != nil {
		appLog.Error("failed to resolve locale table", err, "locale", conf.Locale)
		return exitConfig
	}
	zone, err := conf.Location()
	if err != nil {
		appLog.Error("failed to load timezone", err)
		return exitConfig
	}

	appLog.Info("effective config",
		"sso_entry_url", conf.SSOEntryURL,
		"calendar_id", conf.CalendarID,
		"weeks_to_fetch", conf.WeeksToFetch,
		"local_timezone", conf.LocalTimezone,
		"locale", loc.Name,
		"headful", conf.Headful,
		"sso_user", appLog.Redact(conf.SSOUser),
		"sync", conf.SyncCron,
		"once", flags.once,
	)

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		appLog.Info("signal received, shutting down", "signal", sig.String())
		cancel()
	}()

	if err := gcal.MaterializeSecretFiles(conf.CredentialsPath, conf.TokenPath); err != nil {
		appLog.Error("failed to materialize secret files", err)
		return exitConfig
	}

	if flags.once || conf.SyncCron == "" {
		_, err := syncOnce(ctx, conf, loc, zone, flags)
		return exitCodeFor(err)
	}

	// Periodic operation: cron-scheduled runs plus the status server.
	server := web.NewServer()
	if conf.Listen != "" {
		go func() {
			if err := server.Start(ctx, conf.Listen); err != nil {
				appLog.Error("status server failed", err)
			}
		}()
	}

	runAndRecord := func() {
		rep, err := syncOnce(ctx, conf, loc, zone, flags)
		st := web.Status{LastRun: time.Now()}
		if rep != nil {
			st.Weeks = rep.Weeks
			st.Created = rep.Created
			st.Updated = rep.Updated
			st.Skipped = rep.Skipped
		}
		if err != nil {
			st.Error = err.Error()
		}
		server.SetStatus(st)
	}

	// First run immediately, then on schedule.
	runAndRecord()

	c := cron.New()
	if _, err := c.AddFunc(conf.SyncCron, runAndRecord); err != nil {
		appLog.Error("invalid sync schedule", err, "sync", conf.SyncCron)
		return exitConfig
	}
	c.Start()

	<-ctx.Done()
	<-c.Stop().Done()
	appLog.Info("mocal exiting")
	return exitOK
}

// syncOnce performs one full scrape-and-upsert run.
func syncOnce(ctx context.Context, conf *config.Config, loc *locale.Table, zone *time.Location, flags flagConfig) (*pipeline.Report, error) {
	svc, err := gcal.NewService(ctx, conf.CredentialsPath, conf.TokenPath, flags.consent)
	if err != nil {
		appLog.Error("calendar authentication failed", err)
		return nil, fmt.Errorf("%w: %v", errConfig, err)
	}

	sess, err := portal.Open(ctx, conf, loc)
	if err != nil {
		appLog.Error("browser start failed", err)
		return nil, err
	}
	defer sess.Close()

	if err := sess.Login(); err != nil {
		appLog.Error("portal login failed", err)
		return nil, err
	}
	if err := sess.EnterTimetable(); err != nil {
		appLog.Error("could not reach timetable application", err)
		return nil, err
	}
	if err := sess.OpenWeekView(); err != nil {
		appLog.Error("could not open week view", err)
		return nil, err
	}

	p := pipeline.New(conf, loc, zone, sess, gcal.NewUpserter(svc, conf.CalendarID))
	rep, err := p.Run(ctx)
	if err != nil {
		appLog.Error("sync run failed", err,
			"weeks_done", rep.Weeks,
			"created", rep.Created,
			"updated", rep.Updated,
		)
		return rep, err
	}

	if flags.dump || conf.DumpDir != "" {
		dir := conf.DumpDir
		if dir == "" {
			dir = "."
		}
		if _, derr := export.DumpWindow(dir, rep.Events, rep.Started); derr != nil {
			appLog.Error("ics dump failed", derr, "dir", dir)
		}
	}

	return rep, nil
}

func exitCodeFor(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, portal.ErrAuthentication):
		return exitAuth
	case errors.Is(err, errConfig):
		return exitConfig
	default:
		return exitRun
	}
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "mocal.yaml", "Path to config file")
	flag.BoolVar(&cfg.once, "once", false, "Run one sync and exit even if a schedule is configured")
	flag.BoolVar(&cfg.dump, "dump", false, "Write the run's events to an ICS file")
	flag.BoolVar(&cfg.headful, "headful", false, "Show the browser window (debugging)")
	flag.BoolVar(&cfg.consent, "consent", false, "Allow the interactive OAuth consent flow when no token exists")
	flag.BoolVar(&cfg.debug, "debug", false, "Enable debug logging")

	flag.Parse()

	return cfg
}
