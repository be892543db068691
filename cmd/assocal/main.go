package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"go.uber.org/automaxprocs/maxprocs"

	"assocal/internal/capture"
	"assocal/internal/config"
	"assocal/internal/ics"
	appLog "assocal/internal/log"
	"assocal/internal/web"
)

// flagConfig holds CLI flag values.
type flagConfig struct {
	configPath string
	listen     string
	once       bool
	snapshot   string
	debug      bool
}

func main() {
	flags := parseFlags()

	// .env is optional; real environment variables win.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		appLog.Error("failed to read .env", err)
	}

	if _, err := maxprocs.Set(maxprocs.Logger(func(format string, args ...any) {
		appLog.Debug(fmt.Sprintf(format, args...))
	})); err != nil {
		appLog.Error("failed to set GOMAXPROCS", err)
	}

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}
	if err := conf.ApplyEnv(); err != nil {
		appLog.Error("failed to read environment overrides", err)
		os.Exit(1)
	}
	conf.Normalize()

	// CLI --listen overrides config file listen if provided.
	if flags.listen != "" {
		conf.Listen = flags.listen
	}

	appLog.SetFormat(conf.LogFormat)
	appLog.SetLevel(appLog.ParseLevel(conf.LogLevel))
	if flags.debug {
		appLog.SetLevel(appLog.LevelDebug)
	}

	appLog.Info("assocal starting", "version", "0.1.0")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	converter := newConverter(conf)

	appLog.Info("effective config",
		"listen", conf.Listen,
		"source_base_url", conf.BaseURL(),
		"public_dir", conf.PublicDir,
		"timezone", conf.Timezone,
		"refresh", conf.RefreshCron,
		"feed_count", len(converter.Sources),
		"once", flags.once,
		"snapshot", flags.snapshot,
	)

	if flags.once {
		if _, err := converter.Run(ctx); err != nil {
			appLog.Error("conversion failed", err)
			os.Exit(1)
		}
		return
	}

	if flags.snapshot != "" {
		if err := runSnapshot(ctx, conf, flags.snapshot); err != nil {
			appLog.Error("snapshot failed", err, "variant", flags.snapshot)
			os.Exit(1)
		}
		return
	}

	srv := web.NewServer(conf, flags.debug)
	httpServer := &http.Server{
		Addr:              conf.Listen,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))
	if len(converter.Sources) > 0 {
		if _, err := c.AddFunc(conf.RefreshCron, func() {
			if _, err := converter.Run(ctx); err != nil {
				appLog.Error("scheduled conversion failed", err)
			}
		}); err != nil {
			appLog.Error("invalid refresh schedule", err, "refresh", conf.RefreshCron)
			os.Exit(1)
		}
		// Fresh data before the first page is served.
		if _, err := converter.Run(ctx); err != nil {
			appLog.Error("initial conversion failed", err)
		}
	}
	if _, err := c.AddFunc("@every 5m", func() { srv.PruneSessions() }); err != nil {
		appLog.Error("failed to schedule session pruning", err)
	}
	c.Start()

	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+conf.Listen, "debug", flags.debug)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLog.Error("HTTP server failed", err)
			stop()
		}
	}()

	<-ctx.Done()
	appLog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		appLog.Error("HTTP shutdown failed", err)
	}
	<-c.Stop().Done()

	appLog.Info("assocal exiting")
}

// newConverter merges feeds from the config file, the feeds file and
// <ASSOCIATION>_ICS environment variables, in that priority.
func newConverter(conf *config.Config) *ics.Converter {
	fromConfig := make([]ics.Source, 0, len(conf.Feeds))
	for _, f := range conf.Feeds {
		if strings.TrimSpace(f.URL) == "" || strings.TrimSpace(f.Association) == "" {
			continue
		}
		fromConfig = append(fromConfig, ics.Source{Association: f.Association, URL: f.URL})
	}

	fromFile, err := ics.ParseFeedsFile(conf.FeedsFile)
	if err != nil {
		appLog.Error("failed to read feeds file", err, "path", conf.FeedsFile)
	}

	loc, err := time.LoadLocation(conf.Timezone)
	if err != nil {
		appLog.Error("failed to load timezone; falling back to local", err, "name", conf.Timezone)
		loc = time.Local
	}

	return &ics.Converter{
		Fetcher:   ics.NewFetcher(conf.CacheDir, nil),
		Sources:   ics.MergeSources(fromConfig, fromFile, ics.FeedsFromEnv(os.Environ())),
		Images:    ics.ImagePicker{Dir: conf.ImagesDir},
		PublicDir: conf.PublicDir,
		Colors:    conf.Colors,
		Location:  loc,
		Backfill:  time.Duration(conf.BackfillDays) * 24 * time.Hour,
		Horizon:   time.Duration(conf.HorizonDays) * 24 * time.Hour,
	}
}

// runSnapshot serves the pages on the configured address just long enough
// to capture one variant into conf.PreviewPath.
func runSnapshot(ctx context.Context, conf *config.Config, variant string) error {
	page := "/pc/calendrier.html"
	if variant == "mobile" {
		page = "/mobile/calendrier.html"
	} else if variant != "pc" {
		return fmt.Errorf("unknown variant %q", variant)
	}

	httpServer := &http.Server{
		Addr:              conf.Listen,
		Handler:           web.NewServer(conf, false).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- httpServer.ListenAndServe() }()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	select {
	case err := <-errCh:
		return err
	case <-time.After(200 * time.Millisecond):
	}

	err := capture.CapturePage(ctx, capture.Options{
		URL:        "http://" + conf.Listen + page,
		OutputPath: conf.PreviewPath,
		Mobile:     variant == "mobile",
	})
	if err != nil {
		return err
	}
	appLog.Info("snapshot written", "variant", variant, "path", conf.PreviewPath)
	return nil
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "./assocal.yaml", "Path to config file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.BoolVar(&cfg.once, "once", false, "Convert the ICS feeds once and exit")
	flag.StringVar(&cfg.snapshot, "snapshot", "", "Capture the given page variant (pc|mobile) to preview_path and exit")
	flag.BoolVar(&cfg.debug, "debug", false, "Enable debug logging and show load errors on the page")

	flag.Parse()

	return cfg
}
