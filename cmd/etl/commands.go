package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"songplays/internal/config"
	"songplays/internal/etl"
	"songplays/internal/storage"
)

func runCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Load every song file, then every log file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.run(ctx, cmd)
		},
	}
}

func (a *app) run(ctx context.Context, cmd *cobra.Command) error {
	if err := a.lint(); err != nil {
		return err
	}
	cfg := a.cfg
	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	flush, err := setupMetrics(cfg.Metrics, cfg.Job, a.log.Logger)
	if err != nil {
		a.log.Error("metrics disabled", zap.Error(err))
	}
	defer flush()

	repo, err := a.openRepository(ctx)
	if err != nil {
		a.log.Error("connect failed", zap.Error(err))
		return err
	}
	defer repo.Close()

	s := a.schema()
	if cfg.Storage.AutoCreate {
		if err := storage.EnsureSchema(ctx, repo, s); err != nil {
			a.log.Error("apply DDL failed", zap.Error(err))
			return fmt.Errorf("apply DDL: %w", err)
		}
	}

	runner, err := etl.NewRunner(repo, etl.Options{
		Job:              cfg.Job,
		SongDir:          cfg.Source.SongDir,
		LogDir:           cfg.Source.LogDir,
		Pattern:          cfg.Source.Pattern,
		Schema:           s,
		Location:         loc,
		BatchSize:        cfg.Runtime.BatchSize,
		CatalogCacheSize: cfg.Runtime.CatalogCacheSize,
		MaxErrorSamples:  cfg.Runtime.MaxErrorSamples,
		FailFast:         cfg.FailFast,
		Ledger:           cfg.Ledger.Enabled,
	}, a.log.Logger)
	if err != nil {
		return err
	}

	sum, runErr := runner.Run(ctx)
	printSummary(cmd.OutOrStdout(), sum, summaryLanguage())
	if runErr != nil {
		a.log.Error("run aborted", zap.Error(runErr))
		return runErr
	}
	if sum.Failed > 0 {
		return fmt.Errorf("%d file(s) failed", sum.Failed)
	}
	return nil
}

func validateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			issues := config.Validate(*a.cfg, storage.ListKinds())
			out := cmd.OutOrStdout()
			for _, iss := range issues {
				fmt.Fprintf(out, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
			}
			if config.HasErrors(issues) {
				return errors.New("configuration is invalid")
			}
			fmt.Fprintln(out, "configuration is valid")
			return nil
		},
	}
}

func schemaCmd(a *app) *cobra.Command {
	parent := &cobra.Command{Use: "schema", Short: "Manage the warehouse tables"}

	apply := func(name string, fn func(context.Context, storage.Repository) error) *cobra.Command {
		return &cobra.Command{
			Use:   name,
			Short: name + " the configured tables",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				if err := a.lint(); err != nil {
					return err
				}
				ctx := cmd.Context()
				repo, err := a.openRepository(ctx)
				if err != nil {
					return err
				}
				defer repo.Close()
				if err := fn(ctx, repo); err != nil {
					return fmt.Errorf("schema %s: %w", name, err)
				}
				a.log.Info("schema "+name+" done", zap.String("prefix", a.cfg.Storage.TablePrefix))
				fmt.Fprintf(cmd.OutOrStdout(), "schema %s: ok\n", name)
				return nil
			},
		}
	}

	parent.AddCommand(
		apply("create", func(ctx context.Context, r storage.Repository) error {
			return storage.EnsureSchema(ctx, r, a.schema())
		}),
		apply("drop", func(ctx context.Context, r storage.Repository) error {
			return storage.DropSchema(ctx, r, a.schema())
		}),
	)
	return parent
}
