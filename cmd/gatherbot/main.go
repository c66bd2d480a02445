package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"gatherbot/internal/bot"
	"gatherbot/internal/config"
	"gatherbot/internal/convert"
	"gatherbot/internal/fileutil"
	appLog "gatherbot/internal/log"
	"gatherbot/internal/reminder"
	"gatherbot/internal/scheduling"
	"gatherbot/internal/store"
	"gatherbot/internal/web"
)

const version = "0.1.0"

func main() {
	// A missing .env is fine; the environment may already be set.
	_ = godotenv.Load()

	app := &cli.App{
		Name:    "gatherbot",
		Usage:   "Discord bot for gathering polls, RSVP events and document conversion",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Value:   "config.yaml",
				Usage:   "path to the YAML config file (created on first run)",
				EnvVars: []string{"GATHERBOT_CONFIG"},
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "debug, info, warn or error (overrides config and LOG_LEVEL)",
			},
		},
		Action: serve,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the bot (default)",
				Action: serve,
			},
			{
				Name:   "events",
				Usage:  "List stored events and exit",
				Action: listEvents,
			},
			{
				Name:      "convert",
				Usage:     "Convert a .doc, .docx or .pptx file to PDF next to it",
				ArgsUsage: "<file>",
				Action:    convertFile,
			},
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.RunContext(ctx, os.Args); err != nil {
		appLog.Error("gatherbot failed", err)
		os.Exit(1)
	}
}

// loadConfig reads the config file, applies environment overrides and sets
// the log level.
func loadConfig(c *cli.Context) (*config.Config, error) {
	path := c.String("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	cfg.ApplyEnv(os.Getenv)
	if lvl := c.String("log-level"); lvl != "" {
		cfg.LogLevel = lvl
	}
	appLog.SetLevel(appLog.ParseLevel(cfg.LogLevel))
	return cfg, nil
}

// openStore opens the configured backend. The returned close function
// releases it.
func openStore(cfg *config.Config) (*store.Store, func() error, error) {
	noop := func() error { return nil }

	var (
		backend store.Backend
		closeFn = noop
	)
	switch cfg.Store.Backend {
	case config.BackendMemory:
		appLog.Warn("using in-memory store, events are lost on exit")
		backend = store.NewMemoryBackend()
	case config.BackendSQLite:
		db, err := store.OpenSQLite(cfg.Store.Path)
		if err != nil {
			return nil, nil, err
		}
		backend, closeFn = db, db.Close
	default:
		backend = store.NewFileBackend(cfg.Store.Path)
	}

	s, err := store.Open(backend)
	if err != nil {
		_ = closeFn()
		return nil, nil, err
	}
	appLog.Info("store opened", "backend", cfg.Store.Backend, "path", cfg.Store.Path, "events", s.Len())
	return s, closeFn, nil
}

func serve(c *cli.Context) error {
	appLog.Info("gatherbot starting", "version", version)

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	appLog.Info("effective config",
		"timezone", cfg.Timezone,
		"store", cfg.Store.Backend,
		"reminders", cfg.Reminder.Enabled,
		"convert", cfg.Convert.Enabled,
		"listen", cfg.Listen,
		"guild_id", cfg.Discord.GuildID,
	)

	events, closeStore, err := openStore(cfg)
	if err != nil {
		// Refusing to start beats overwriting an unreadable event file.
		return fmt.Errorf("open store: %w", err)
	}
	defer func() {
		if err := closeStore(); err != nil {
			appLog.Error("closing store failed", err)
		}
	}()

	controller := scheduling.NewController(events, scheduling.WithLocation(loc))

	var opts []bot.Option
	if cfg.Convert.Enabled {
		conv, err := convert.Probe(convert.Options{
			Converters: cfg.Convert.Converters,
			Timeout:    cfg.Convert.Timeout,
			MaxBytes:   cfg.Convert.MaxBytes,
			WorkDir:    cfg.Convert.WorkDir,
		})
		switch {
		case errors.Is(err, convert.ErrNoConverter):
			appLog.Warn("no document converter installed, PDF conversion disabled", "candidates", cfg.Convert.Converters)
		case err != nil:
			return err
		default:
			opts = append(opts, bot.WithConverter(conv, convert.NewDownloader(cfg.Convert.MaxBytes), cfg.Convert.Timeout))
		}
	}

	b, err := bot.Connect(cfg.Discord.Token, controller, opts...)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(c.Context)
	defer cancel()

	if cfg.Reminder.Enabled {
		sched, err := reminder.New(ctx, cfg.Reminder.Cron, cfg.Reminder.Lead, controller, b)
		if err != nil {
			return err
		}
		sched.Start()
		defer sched.Stop()
	}

	errCh := make(chan error, 2)
	if cfg.Listen != "" {
		go func() {
			if err := web.StartServer(ctx, cfg, controller); err != nil {
				errCh <- fmt.Errorf("http server: %w", err)
			}
		}()
	}
	go func() {
		errCh <- b.Serve(ctx, cfg.Discord.GuildID)
	}()

	select {
	case err = <-errCh:
		cancel()
	case <-ctx.Done():
		appLog.Info("shutting down")
		err = <-errCh
	}
	// Give in-flight handlers a moment to finish their writes.
	time.Sleep(100 * time.Millisecond)
	appLog.Info("gatherbot exiting")
	return err
}

func listEvents(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	events, closeStore, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	w := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tKIND\tPARTICIPANTS\tCREATOR")
	for _, ev := range events.Events() {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", ev.Name, ev.Kind(), ev.ParticipantCount(), ev.CreatorID)
	}
	return w.Flush()
}

func convertFile(c *cli.Context) error {
	src := c.Args().First()
	if src == "" {
		return cli.Exit("usage: gatherbot convert <file>", 2)
	}
	if !convert.Supported(src) {
		return cli.Exit(fmt.Sprintf("%s: only .doc, .docx and .pptx are supported", src), 2)
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	conv, err := convert.Probe(convert.Options{
		Converters: cfg.Convert.Converters,
		Timeout:    cfg.Convert.Timeout,
		MaxBytes:   cfg.Convert.MaxBytes,
		WorkDir:    cfg.Convert.WorkDir,
	})
	if err != nil {
		return err
	}

	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	pdf, err := conv.ConvertBytes(c.Context, filepath.Base(src), data)
	if err != nil {
		return err
	}

	out := filepath.Join(filepath.Dir(src), convert.PDFName(src))
	if err := fileutil.WriteAtomic(out, pdf, 0o644, ".gatherbot-pdf-*.tmp"); err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, out)
	return nil
}
