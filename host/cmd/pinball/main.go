package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/chzyer/readline"
	"github.com/joho/godotenv"

	"pinball/engine"
	"pinball/events"
	"pinball/logging"
	"pinball/playfield"
	"pinball/playfield/config"
)

var (
	configPath  = flag.String("config", "", "Machine configuration file (YAML); empty runs the built-in simulation")
	envFile     = flag.String("env", ".env", "Environment file loaded before the configuration")
	logLevel    = flag.String("log-level", "", "Log level: debug, info, warn, error (overrides the configuration)")
	logFormat   = flag.String("log-format", "", "Log format: text or json (overrides the configuration)")
	interactive = flag.Bool("interactive", false, "Start the interactive console")
)

func main() {
	flag.Parse()

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	if err := loadDotEnv(*envFile); err != nil {
		return fmt.Errorf("load %s: %w", *envFile, err)
	}

	cfg := config.DefaultSimulationConfig()
	if *configPath != "" {
		var err error
		if cfg, err = config.LoadConfig(*configPath); err != nil {
			return err
		}
	}

	var rl *readline.Instance
	var logOut io.Writer = os.Stderr
	if *interactive {
		var err error
		if rl, err = newReadline(); err != nil {
			return err
		}
		defer rl.Close()
		logOut = rl.Stderr()
	}

	logger, err := newLogger(logOut, cfg.Log)
	if err != nil {
		return err
	}
	slog.SetDefault(logger.Logger)

	bus := events.NewBus()
	m, err := playfield.Build(cfg, bus, logger.Logger)
	if err != nil {
		return err
	}
	defer m.Close()

	e := m.Engine(engine.WithLogger(logger.Logger))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if rl != nil {
		console, err := NewConsole(rl, m, e, logger)
		if err != nil {
			return err
		}
		go console.Run(ctx, stop)
	}

	runErr := e.Run(ctx)
	if err := e.Shutdown(); err != nil {
		logger.Error("shutdown", "error", err)
		return errors.Join(runErr, err)
	}
	return runErr
}

// newLogger applies the command line overrides to the configured logging.
func newLogger(w io.Writer, cfg config.LogConfig) (*logging.Logger, error) {
	levelName, formatName := cfg.Level, cfg.Format
	if *logLevel != "" {
		levelName = *logLevel
	}
	if *logFormat != "" {
		formatName = *logFormat
	}

	level, err := logging.ParseLevel(levelName)
	if err != nil {
		return nil, err
	}
	format, err := logging.ParseFormat(formatName)
	if err != nil {
		return nil, err
	}
	return logging.New(w, level, format), nil
}

// loadDotEnv loads environment variables from path. Missing files are ignored.
func loadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	err := godotenv.Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
