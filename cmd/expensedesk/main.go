package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"expensedesk/internal/backend"
	"expensedesk/internal/cli"
	applog "expensedesk/internal/log"
	"expensedesk/internal/session"
)

func main() {
	os.Exit(realMain())
}

func realMain() int {
	if len(os.Args) < 2 || os.Args[1] == "-h" || os.Args[1] == "help" {
		usage()
		return 2
	}
	if _, ok := commands[os.Args[1]]; !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", os.Args[1])
		usage()
		return 2
	}

	cfg, logger := cli.Bootstrap(applog.ComponentApp)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bc, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", applog.FieldError, err)
		return 1
	}
	res, err := backend.NewFactory(logger).CreateBackend(ctx, bc)
	if err != nil {
		logger.Error("Failed to initialize backend", applog.FieldError, err)
		return 1
	}
	defer func() {
		if err := res.Close(); err != nil {
			logger.Warn("Backend cleanup failed", applog.FieldError, err)
		}
	}()

	sess, err := session.Start(ctx, session.Deps{
		Remote:              res.Remote,
		Tokens:              res.Tokens,
		Publisher:           res.Publisher,
		Logger:              logger,
		PredictionCacheSize: cfg.PredictionCacheSize,
		PredictionCacheTTL:  cfg.PredictionCacheTTL,
	})
	if err != nil {
		logger.Error("Failed to start session", applog.FieldError, err)
		return 1
	}
	defer sess.Close()

	if err := run(ctx, sess, os.Args[1], os.Args[2:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}
	return 0
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: expensedesk <command> [flags]

commands:
  dashboard                         show analytics for the session's scope
  list [-status s] [-scope s]       list expenses
  submit -title -amount -category -date [-description] [-predict]
  approve -id N                     approve a pending expense (managers)
  reject -id N                      reject a pending expense (managers)
  predict -title -amount [-description]
  insights [-days N]
  budget -monthly AMOUNT
  categories`)
}
