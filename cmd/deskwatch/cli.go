package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/quietloop/deskwatch/internal/analyze"
	"github.com/quietloop/deskwatch/internal/collector"
	"github.com/quietloop/deskwatch/internal/config"
	"github.com/quietloop/deskwatch/internal/errors"
	"github.com/quietloop/deskwatch/internal/logging"
	"github.com/quietloop/deskwatch/internal/store"
)

// newCLIApp creates the CLI application with all commands.
func newCLIApp(cfg *config.Config, baseDir string) *cli.App {
	app := &cli.App{
		Name:    "deskwatch",
		Usage:   "Desktop activity capture and reporting",
		Version: Version,
		Commands: []*cli.Command{
			initDBCmd(baseDir),
			runCmd(cfg, baseDir),
			analyzeCmd(baseDir),
			sessionsCmd(baseDir),
			appsCmd(baseDir),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

func dbFlag(baseDir string) *cli.StringFlag {
	return &cli.StringFlag{
		Name:  "db",
		Value: filepath.Join(baseDir, "deskwatch.db"),
		Usage: "Path to SQLite database file",
	}
}

// initDBCmd creates the init-db command.
func initDBCmd(baseDir string) *cli.Command {
	return &cli.Command{
		Name:  "init-db",
		Usage: "Create or upgrade the database schema",
		Flags: []cli.Flag{dbFlag(baseDir)},
		Action: func(c *cli.Context) error {
			st, err := store.Open(c.String("db"))
			if err != nil {
				return outputError(errors.NewStoreUnavailable(err))
			}
			defer st.Close()

			version, err := store.GetUserVersion(st.DB())
			if err != nil {
				return outputError(err)
			}
			return outputJSON(map[string]any{
				"db_path":        c.String("db"),
				"schema_version": version,
			})
		},
	}
}

// runCmd creates the run command.
func runCmd(cfg *config.Config, baseDir string) *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Run the collector until interrupted",
		Flags: []cli.Flag{
			dbFlag(baseDir),
			&cli.IntFlag{Name: "poll-hz", Usage: "App/window polling frequency (Hz)"},
			&cli.IntFlag{Name: "move-hz", Usage: "Pointer move sampling frequency (Hz)"},
			&cli.BoolFlag{Name: "no-moves", Usage: "Do not record pointer move events"},
			&cli.BoolFlag{Name: "no-keys", Usage: "Do not record keyboard events"},
			&cli.StringFlag{Name: "log-level", Usage: "Logging level (debug, info, warn, error)"},
		},
		Action: func(c *cli.Context) error {
			merged := mergeRunFlags(cfg, c)
			if err := merged.Validate(); err != nil {
				return outputError(err)
			}

			log, err := logging.New(logging.Options{
				Level:  merged.LogLevel,
				Format: merged.LogFormat,
				Output: os.Stderr,
			})
			if err != nil {
				return outputError(errors.NewInvalidConfig(err.Error()))
			}

			st, err := store.Open(c.String("db"))
			if err != nil {
				return outputError(errors.NewStoreUnavailable(err))
			}
			defer st.Close()
			st.ConfigurePool(merged)

			col, err := collector.New(collector.Options{
				Config: merged,
				Store:  st,
				Log:    log,
			})
			if err != nil {
				return outputError(err)
			}

			ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := col.Run(ctx); err != nil {
				return outputError(err)
			}
			return nil
		},
	}
}

// mergeRunFlags overlays run-command flags on the loaded configuration.
func mergeRunFlags(cfg *config.Config, c *cli.Context) *config.Config {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	overlay := &config.Config{
		PollHz:       c.Int("poll-hz"),
		MoveHz:       c.Int("move-hz"),
		DisableMoves: c.Bool("no-moves"),
		DisableKeys:  c.Bool("no-keys"),
		LogLevel:     c.String("log-level"),
	}
	return config.Merge(cfg, overlay)
}

// analyzeCmd creates the analyze command.
func analyzeCmd(baseDir string) *cli.Command {
	return &cli.Command{
		Name:  "analyze",
		Usage: "Quick summaries from the database",
		Flags: []cli.Flag{
			dbFlag(baseDir),
			&cli.BoolFlag{Name: "summary", Usage: "Show a human-readable summary instead of JSON"},
			&cli.IntFlag{Name: "top", Usage: "Number of apps in the clicks ranking", Value: analyze.DefaultTopAppLimit},
		},
		Action: func(c *cli.Context) error {
			st, err := store.Open(c.String("db"))
			if err != nil {
				return outputError(errors.NewStoreUnavailable(err))
			}
			defer st.Close()

			out, err := analyze.Summary(st.DB(), analyze.SummaryInput{
				TopAppLimit: c.Int("top"),
			})
			if err != nil {
				return outputError(err)
			}

			if c.Bool("summary") {
				printSummary(out)
				return nil
			}
			return outputJSON(out)
		},
	}
}

func printSummary(out *analyze.SummaryOutput) {
	fmt.Println("Clicks:\t", out.Clicks)
	fmt.Println("Moves:\t", out.Moves)
	fmt.Println("Switches:", out.Switches)
	fmt.Println("Keypresses:", out.Keypresses)
	fmt.Println("KPM (overall):", out.KPMOverall)
	fmt.Println("KPM (last 60m):", out.KPMLast60m)
	fmt.Println("Best KPM (1m window):", out.BestKPM)
	if out.BestWindow != nil {
		fmt.Printf("  best window start: %v, end: %v, keypresses: %d\n",
			out.BestWindow.StartTS, out.BestWindow.EndTS, out.BestWindow.Keypresses)
	}
	fmt.Println("Top apps (by clicks):")
	for _, app := range out.TopApps {
		fmt.Printf("  %-30s %6d\n", app.AppName, app.Clicks)
	}
}

// sessionsCmd creates the sessions command.
func sessionsCmd(baseDir string) *cli.Command {
	return &cli.Command{
		Name:  "sessions",
		Usage: "List capture sessions, most recent first",
		Flags: []cli.Flag{
			dbFlag(baseDir),
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: 50, Usage: "Maximum sessions to return"},
		},
		Action: func(c *cli.Context) error {
			st, err := store.Open(c.String("db"))
			if err != nil {
				return outputError(errors.NewStoreUnavailable(err))
			}
			defer st.Close()

			sessions, err := st.ListSessions(c.Int("limit"))
			if err != nil {
				return outputError(err)
			}
			if sessions == nil {
				sessions = []store.Session{}
			}
			return outputJSON(map[string]any{"sessions": sessions})
		},
	}
}

// appsCmd creates the apps command.
func appsCmd(baseDir string) *cli.Command {
	return &cli.Command{
		Name:  "apps",
		Usage: "List observed applications ordered by first sighting",
		Flags: []cli.Flag{
			dbFlag(baseDir),
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: 200, Usage: "Maximum applications to return"},
		},
		Action: func(c *cli.Context) error {
			st, err := store.Open(c.String("db"))
			if err != nil {
				return outputError(errors.NewStoreUnavailable(err))
			}
			defer st.Close()

			apps, err := st.ListApplications(c.Int("limit"))
			if err != nil {
				return outputError(err)
			}
			if apps == nil {
				apps = []store.Application{}
			}
			return outputJSON(map[string]any{"applications": apps})
		},
	}
}

// Helper functions

// outputJSON marshals result to stdout as JSON.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	if dwErr, ok := err.(*errors.Error); ok {
		return cli.Exit(fmt.Sprintf("[%s] %s", dwErr.Code, dwErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}
