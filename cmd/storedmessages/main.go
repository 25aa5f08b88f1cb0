package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrymomot/storedmessages/pkg/config"
	"github.com/dmitrymomot/storedmessages/pkg/logger"
	"github.com/dmitrymomot/storedmessages/pkg/messages"
	"github.com/dmitrymomot/storedmessages/pkg/messages/backends"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var logCfg logger.Config
	config.MustLoad(&logCfg)
	logOpts, err := logger.FromConfig(logCfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log := logger.New(append(logOpts,
		logger.WithOutput(os.Stderr),
		logger.WithContextValue("command", commandKey{}),
	)...)
	logger.SetAsDefault(log)

	open := func(ctx context.Context) (*messages.Store, backends.CloseFunc, error) {
		var cfg backends.Config
		if err := config.Load(&cfg); err != nil {
			return nil, nil, err
		}
		return backends.OpenStore(ctx, cfg, backends.WithLogger(log))
	}

	if err := newRootCmd(open, os.Stdout).ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
