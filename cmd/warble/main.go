package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Honorable-Knights-of-the-Roundtable/warble/cmd/warble/config"
	"github.com/Honorable-Knights-of-the-Roundtable/warble/internal/audioapi"
	"github.com/Honorable-Knights-of-the-Roundtable/warble/internal/controlpanel"
	"github.com/Honorable-Knights-of-the-Roundtable/warble/internal/logging"
	"github.com/Honorable-Knights-of-the-Roundtable/warble/internal/synth"
	"github.com/Honorable-Knights-of-the-Roundtable/warble/internal/transport"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"
)

const appName = "warble"

func main() {
	os.Exit(run())
}

func run() int {
	configFilePath := flag.String("configFilePath", "config.yaml", "Set the file path to the config file.")
	flag.Parse()

	cfg, err := config.LoadConfig(*configFilePath)
	if err != nil {
		slog.Error("invalid configuration", "err", err)
		return 1
	}
	logFilePointer, err := logging.ConfigureDefaultLogger(cfg.LogLevel, cfg.LogFile, slog.HandlerOptions{})
	if err != nil {
		slog.Error("error while configuring default logger", "err", err)
		return 1
	}
	if logFilePointer != nil {
		defer logFilePointer.Close()
	}
	logger := slog.Default()

	// --------------------------------------------------------------------------------

	host, err := audioapi.NewHost(cfg.Backend, appName, logger)
	if err != nil {
		logger.Error("failed to create audio host", "backend", cfg.Backend, "err", err)
		return 1
	}
	defer func() {
		if err := host.Close(); err != nil {
			logger.Warn("failed to close audio host", "err", err)
		}
	}()

	s, err := synth.Open(host, cfg.Synth(), logger)
	if err != nil {
		logger.Error("failed to open tone", "backend", cfg.Backend, "err", err)
		return 1
	}

	mb, tx := transport.NewMailbox()
	runErr := make(chan error, 1)
	go func() { runErr <- s.Run(mb) }()

	if cfg.Autoplay {
		if err := tx.Send(transport.Play); err != nil {
			logger.Warn("failed to send autoplay", "err", err)
		}
	}

	// --------------------------------------------------------------------------------

	if err := present(cfg, tx, s, logger); err != nil {
		logger.Error("control panel failed", "err", err)
	}

	// Panels never send Exit; the transport stops only here.
	if err := tx.Send(transport.Exit); err != nil {
		logger.Warn("failed to send exit", "err", err)
	}
	tx.Close()

	waitCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := s.Controller().Wait(waitCtx); err != nil {
		logger.Warn("output device did not shut down in time", "timeout", cfg.ShutdownTimeout)
		return 1
	}
	if err := <-runErr; err != nil {
		logger.Error("transport failed", "err", err)
		return 1
	}
	return 0
}

// present runs the enabled control panels until one of them quits or the
// process is signalled.
func present(cfg config.Config, tx *transport.Sender, s *synth.Synth, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	// The first panel to return ends the others.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	useTerminal := cfg.Terminal && term.IsTerminal(int(os.Stdin.Fd()))
	if cfg.Terminal && !useTerminal {
		logger.Info("stdin is not a terminal, terminal control panel disabled")
	}

	if useTerminal {
		sender, err := tx.Clone()
		if err != nil {
			return err
		}
		terminal := controlpanel.NewTerminal(os.Stdin, os.Stdout, sender, s, logger)
		g.Go(func() error {
			defer cancel()
			return terminal.Run(ctx)
		})
	}

	if cfg.HTTPAddr != "" {
		sender, err := tx.Clone()
		if err != nil {
			return err
		}
		panel := controlpanel.NewHTTP(sender, s, logger, controlpanel.DescribeStream(s.Stream()))
		g.Go(func() error {
			defer cancel()
			return panel.Serve(ctx, cfg.HTTPAddr)
		})
	}

	if !useTerminal && cfg.HTTPAddr == "" {
		logger.Info("no control panel enabled, running until signalled")
	}
	<-ctx.Done()

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
