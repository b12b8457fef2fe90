package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"genealogycore/internal/blob"
	"genealogycore/internal/config"
	"genealogycore/internal/core"
	"genealogycore/pkg/domain"

	"github.com/spf13/cobra"
)

// Exit codes by error kind.
const (
	exitFailure    = 1
	exitNotFound   = 3
	exitConflict   = 4
	exitValidation = 5
)

func exitCode(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return exitNotFound
	case errors.Is(err, domain.ErrConflict):
		return exitConflict
	case errors.Is(err, domain.ErrValidation):
		return exitValidation
	default:
		return exitFailure
	}
}

type app struct {
	envFiles []string
	output   string

	store core.ClosableStore
	svc   *core.Service
}

// run executes one command line and releases the store afterwards.
func run(args []string, stdout, stderr io.Writer) error {
	a := &app{}
	root := a.rootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	err := root.Execute()
	if closeErr := a.close(); err == nil {
		err = closeErr
	}
	return err
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "genealogyctl",
		Short:         "Operate on a versioned genealogy store",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if a.output != "json" && a.output != "yaml" {
				return domain.Invalid("output", "must be json or yaml, got %q", a.output)
			}
			return a.open(cmd.Context())
		},
	}
	root.PersistentFlags().StringSliceVar(&a.envFiles, "env-file", []string{".env"}, "dotenv files to load before reading GENEALOGY_* variables")
	root.PersistentFlags().StringVarP(&a.output, "output", "o", "json", "output format: json or yaml")

	root.AddCommand(
		a.createCmd(), a.getCmd(), a.saveCmd(), a.deleteCmd(),
		a.listCmd(), a.searchCmd(),
		a.historyCmd(), a.restorePointsCmd(), a.rollbackCmd(),
		a.linkChildCmd(), a.unlinkChildCmd(), a.pedigreeCmd(), a.ancestorsCmd(),
		a.citationsCmd(), a.facetsCmd(),
		a.surnamesCmd(), a.placesCmd(),
		a.mediaCmd(),
	)
	return root
}

func (a *app) open(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.Load(a.envFiles...)
	if err != nil {
		return err
	}
	logger, err := cfg.NewLogger()
	if err != nil {
		return err
	}
	store, err := core.OpenPersistentStore(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	blobs, err := blob.Open(ctx, cfg.Blob)
	if err != nil {
		_ = store.Close()
		return fmt.Errorf("open blob store: %w", err)
	}
	a.store = store
	a.svc = core.NewService(store, core.WithLogger(core.NewZapLogger(logger)), core.WithBlobStore(blobs))
	return nil
}

func (a *app) close() error {
	if a.store == nil {
		return nil
	}
	err := a.store.Close()
	a.store, a.svc = nil, nil
	return err
}
