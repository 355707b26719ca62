package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/bgunnarsson/sqlkit/internal/app"
	"github.com/bgunnarsson/sqlkit/internal/client"
	"github.com/bgunnarsson/sqlkit/internal/config"
)

var errStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)

func main() {
	cfg, err := config.FromOS()
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		fail(err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	stdoutIsTTY := term.IsTerminal(int(os.Stdout.Fd()))
	if cfg.NonInteractive() || !stdoutIsTTY {
		err = app.RunNonInteractive(ctx, cfg, logger, os.Stdout, stdoutIsTTY)
	} else {
		err = app.RunInteractive(ctx, cfg, logger)
	}
	if err != nil {
		stop()
		fail(err)
	}
}

func fail(err error) {
	label := "error"
	if k := client.KindOf(err); k != client.KindOther {
		label = k.String() + " error"
	}
	if term.IsTerminal(int(os.Stderr.Fd())) {
		label = errStyle.Render(label)
	}
	fmt.Fprintf(os.Stderr, "%s: %v\n", label, err)
	os.Exit(1)
}
