package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lvow2022/research-assistant/internal/config"
	"github.com/lvow2022/research-assistant/internal/service"
	"github.com/lvow2022/research-assistant/ioc"
	"github.com/lvow2022/research-assistant/pkg/log"
)

func main() {
	cfgPath := flag.String("config", "config/config.yaml", "path to the YAML config file")
	check := flag.Bool("check", false, "test the integration connections and exit")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.WithError(err).Fatal("failed to load config")
	}
	if err := ioc.InitDataDirs(cfg); err != nil {
		log.WithError(err).Fatal("failed to prepare data dirs")
	}
	closer, err := log.Setup(cfg.Log.Level, cfg.Server.LogDir)
	if err != nil {
		log.WithError(err).Fatal("failed to set up logging")
	}
	defer closer.Close()

	if *check {
		os.Exit(runCheck(cfg, os.Stdout))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app := InitApp(cfg)
	if _, err := os.Stat(*cfgPath); err == nil {
		if err := config.WatchFile(ctx, *cfgPath, func(c *config.Config) {
			app.State.ApplyNewConfig(c)
			if c.Discord.FrequencyHours != app.Scheduler.Frequency() {
				if err := app.Scheduler.UpdateFrequency(c.Discord.FrequencyHours); err != nil {
					log.WithError(err).Warn("ignoring schedule change")
				}
			}
		}); err != nil {
			log.WithError(err).Fatal("failed to start config watcher")
		}
	}

	if err := app.Scheduler.Start(); err != nil {
		log.WithError(err).Fatal("failed to start scheduler")
	}
	if app.Discord.Enabled() {
		go announce(ctx, app, cfg)
	}

	srv := &http.Server{Addr: cfg.Server.Addr, Handler: app.Server}
	go func() {
		log.WithField("addr", srv.Addr).Info("research assistant listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("http server failed")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("http shutdown")
	}
	if err := app.Scheduler.Stop(shutdownCtx); err != nil {
		log.WithError(err).Warn("scheduler shutdown")
	}
	app.Tasks.Wait()
}

func announce(ctx context.Context, app *App, cfg *config.Config) {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	msg := fmt.Sprintf("🚀 **Research Assistant Started!**\nListening on %s. Research updates every %d hours.",
		cfg.Server.Addr, app.Scheduler.Frequency())
	if err := app.Discord.SendMessage(ctx, msg); err != nil {
		log.WithError(err).Warn("startup notification failed")
	}
}

// runCheck prints the connection report and returns the process exit code.
func runCheck(cfg *config.Config, out io.Writer) int {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	report := InitHealthCheck(cfg).Run(ctx, service.CredentialsFrom(cfg))

	fmt.Fprintln(out, "Environment variables:")
	for _, c := range report.Credentials {
		mark := "✅"
		if !c.Set {
			mark = "❌"
		}
		fmt.Fprintf(out, "  %s %s (length %d)\n", mark, c.Name, c.Length)
	}
	fmt.Fprintln(out, "Connections:")
	for _, c := range report.Checks {
		switch {
		case c.Reachable:
			fmt.Fprintf(out, "  ✅ %s (%s)\n", c.Name, c.Latency)
		default:
			fmt.Fprintf(out, "  ❌ %s: %s\n", c.Name, c.Error)
		}
	}
	if !report.OK() {
		fmt.Fprintln(out, "Some checks failed.")
		return 1
	}
	fmt.Fprintln(out, "All systems go.")
	return 0
}
