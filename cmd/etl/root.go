package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"songplays/internal/config"
	"songplays/internal/logger"
	"songplays/internal/schema"
	"songplays/internal/storage"
)

// newRepositoryFn is a test seam over storage.New.
var newRepositoryFn = storage.New

// app carries what PersistentPreRunE resolved for the subcommands.
type app struct {
	configFile string
	envPath    string
	debug      bool

	cfg *config.Config
	log *logger.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "etl",
		Short:         "Load song and log data into the songplays star schema",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.log != nil {
				a.log.Close(2 * time.Second)
			}
		},
	}
	root.PersistentFlags().StringVar(&a.configFile, "config", "", "config file (default: config.yaml in . or config/)")
	root.PersistentFlags().StringVar(&a.envPath, "env-path", "", "directory holding .env and .env.local (default: config/)")
	root.PersistentFlags().BoolVar(&a.debug, "debug", false, "debug logging (overrides the debug key)")

	root.AddCommand(runCmd(a), validateCmd(a), schemaCmd(a))
	return root
}

func (a *app) init(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configFile, a.envPath)
	if err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), err)
		return err
	}
	if cmd.Flags().Changed("debug") {
		cfg.Debug = a.debug
	}
	a.cfg = cfg

	l, err := logger.New(logger.Config{
		Debug:     cfg.Debug,
		SentryDSN: cfg.SentryDSN,
		Tags:      map[string]string{"job": cfg.Job},
	})
	if err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), "logger:", err)
		return err
	}
	a.log = l
	return nil
}

// lint logs every issue and fails when any is an error.
func (a *app) lint() error {
	issues := config.Validate(*a.cfg, storage.ListKinds())
	for _, iss := range issues {
		f := []zap.Field{zap.String("path", iss.Path), zap.String("issue", iss.Message)}
		if iss.Severity == config.SeverityError {
			a.log.Error("invalid configuration", f...)
		} else {
			a.log.Warn("configuration warning", f...)
		}
	}
	if config.HasErrors(issues) {
		return errors.New("configuration is invalid")
	}
	return nil
}

func (a *app) schema() schema.Schema {
	return schema.Default().WithPrefix(a.cfg.Storage.TablePrefix)
}

func (a *app) openRepository(ctx context.Context) (storage.Repository, error) {
	a.log.Info("connecting",
		zap.String("kind", a.cfg.Storage.Kind),
		zap.Duration("connect_timeout", a.cfg.Storage.ConnectTimeout),
		zap.Int("max_retries", a.cfg.Storage.MaxRetries),
	)
	return newRepositoryFn(ctx, storage.Config{
		Kind:           a.cfg.Storage.Kind,
		DSN:            a.cfg.Storage.DSN,
		ConnectTimeout: a.cfg.Storage.ConnectTimeout,
		MaxRetries:     a.cfg.Storage.MaxRetries,
		Logger:         a.log.Logger,
	})
}
