package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/forgo/admin-e2e/internal/config"
	"github.com/forgo/admin-e2e/internal/harness"
	"github.com/forgo/admin-e2e/internal/runner"
	"github.com/forgo/admin-e2e/internal/scenarios"
)

func main() {
	var (
		configPath string
		serverURL  string
		driver     string
		storeKind  string
		artifacts  string
		filters    harness.RegexFilters
		debug      bool
		debugAll   bool
	)

	fs := pflag.NewFlagSet("admin-e2e", pflag.ExitOnError)
	fs.StringVar(&configPath, "config", "", "HuJSON config file")
	fs.StringVar(&serverURL, "url", "", "admin server URL (overrides ADMIN_SERVER_URL)")
	fs.StringVar(&driver, "driver", "", "browser driver: chrome, playwright, html or fake")
	fs.StringVar(&storeKind, "store", "", "fixture store: rest, surreal, postgres or memory")
	fs.StringVar(&artifacts, "artifacts", "", "directory for failure snapshots")
	fs.Var(&filters.MustMatch, "run", "regex pattern(s) to select scenarios to run")
	fs.Var(&filters.MustNotMatch, "skip", "regex pattern(s) to select scenarios not to run")
	fs.BoolVar(&debug, "debug", false, "print debug output of failed scenarios")
	fs.BoolVar(&debugAll, "debug-all", false, "print debug output of all scenarios")
	_ = fs.Parse(os.Args[1:])

	level := slog.LevelInfo
	if debugAll {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}
	cfg.Apply(config.Overrides{
		ServerURL:    serverURL,
		Driver:       driver,
		Store:        storeKind,
		ArtifactsDir: artifacts,
	})
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, cfg, filters, rerunCommand(fs), debug, debugAll, logger)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, cfg *config.Config, filters harness.RegexFilters, command []string, debug, debugAll bool, logger *slog.Logger) int {
	st, err := runner.OpenStore(ctx, cfg, logger)
	if err != nil {
		slog.Error("failed to open store", slog.String("store", cfg.Store.Kind), slog.String("error", err.Error()))
		return 1
	}
	defer func() { _ = st.Close() }()

	env, closeSession, err := runner.NewEnv(ctx, cfg, st, logger)
	if err != nil {
		slog.Error("failed to start browser", slog.String("driver", cfg.Browser.Driver), slog.String("error", err.Error()))
		return 1
	}
	defer func() { _ = closeSession() }()

	slog.Info("running admin scenarios",
		slog.String("url", cfg.Admin.ServerURL),
		slog.String("collection", cfg.Admin.Collection),
		slog.String("driver", cfg.Browser.Driver),
	)

	fmt.Println()
	harness.PrintFilterDescription(os.Stdout, filters)

	testLogger := &harness.ConsoleTestLogger{
		DebugOutputOnFailure: debug || debugAll,
		DebugOutputOnSuccess: debugAll,
		Command:              command,
	}
	results := harness.Run(filters.AsFilter, testLogger, scenarios.Suite(env),
		harness.WithContext(ctx),
		harness.WithArtifacts(harness.NewArtifacts(cfg.Run.ArtifactsDir)),
		harness.WithLogger(logger),
	)

	fmt.Println()
	harness.PrintResults(os.Stdout, results)
	if !results.OK() {
		return 1
	}
	return 0
}

// rerunCommand is the command line minus the scenario filters
func rerunCommand(fs *pflag.FlagSet) []string {
	command := []string{os.Args[0]}
	fs.Visit(func(f *pflag.Flag) {
		if f.Name == "run" || f.Name == "skip" {
			return
		}
		command = append(command, "--"+f.Name+"="+f.Value.String())
	})
	return command
}
