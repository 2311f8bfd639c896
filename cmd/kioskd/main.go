// Package main provides the kiosk daemon entry point.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kingpin/v2"
	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/museumtech/kioskd/internal/app/controller"
	"github.com/museumtech/kioskd/internal/app/display"
	"github.com/museumtech/kioskd/internal/app/subtitle"
	"github.com/museumtech/kioskd/internal/engine"
	"github.com/museumtech/kioskd/internal/infra/config"
	"github.com/museumtech/kioskd/internal/infra/logger"
	"github.com/museumtech/kioskd/internal/input"
)

// Exit codes. The engine-death code is distinct so the service unit can
// treat a dead renderer as restart-the-whole-kiosk.
const (
	exitOK         = 0
	exitError      = 1
	exitEngineDied = 2
)

var (
	app        = kingpin.New("kioskd", "Single-button museum kiosk video player")
	configPath = app.Flag("config", "Path to config file").Default("config.yaml").String()
	verbose    = app.Flag("verbose", "Enable verbose (DEBUG) logging").Short('v').Bool()
	logfile    = app.Flag("logfile", "Path to log file (default: stdout)").String()
	console    = app.Flag("console", "Emulate button presses from stdin ('s'/'l' + enter)").Bool()
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	kingpin.MustParse(app.Parse(os.Args[1:]))

	loggerConfig := logger.Config{
		Output: "stdout",
		Level:  "info",
	}
	if *verbose {
		loggerConfig.Level = "debug"
	}
	if *logfile != "" {
		loggerConfig.Output = *logfile
	}
	if err := logger.Init(loggerConfig); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}

	zlog.Info().Msgf("Loading config from %s", *configPath)
	store := config.NewFileStore(*configPath)
	cfg, err := store.Load()
	if err != nil {
		zlog.Fatal().Msgf("Failed to load config: %v", err)
	}

	if err := run(cfg, store); err != nil {
		if errors.Is(err, controller.ErrEngineDied) {
			zlog.Error().Msg("Render engine died, exiting for supervisor restart")
			os.Exit(exitEngineDied)
		}
		zlog.Error().Msgf("Kiosk error: %v", err)
		os.Exit(exitError)
	}
	os.Exit(exitOK)
}

// run wires the collaborators together and drives them until a signal or a
// fatal error. Using a separate function ensures defer statements run even
// when returning with an error.
func run(cfg *config.Config, store *config.FileStore) error {
	primary := input.NewQueue()
	sub := input.NewQueue()

	renderer := engine.NewRenderer(cfg)
	power := display.NewManager(renderer, display.CommandHardware{}, cfg)
	selector := subtitle.NewSelector(renderer, cfg.Subtitles.Prefer, cfg.Subtitles.Remember())
	ctrl := controller.New(cfg, store, renderer, power, selector, primary, sub)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return input.NewControlListener(cfg.Control.UDPAddr, primary, sub).Run(ctx)
	})

	if *console {
		g.Go(func() error {
			input.RunConsoleEmulation(ctx, os.Stdin, primary)
			return nil
		})
	}

	g.Go(func() error {
		return ctrl.Run(ctx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	zlog.Info().Msg("Kiosk stopped")
	return nil
}
