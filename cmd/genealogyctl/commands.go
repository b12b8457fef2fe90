package main

import (
	"os"
	"strconv"

	"genealogycore/internal/history"
	"genealogycore/internal/query"
	"genealogycore/pkg/domain"

	"github.com/spf13/cobra"
)

// readData resolves --data, where "@path" reads the JSON from a file.
func readData(data string) ([]byte, error) {
	if data == "" {
		return nil, domain.Invalid("data", "is required")
	}
	if data[0] == '@' {
		return os.ReadFile(data[1:])
	}
	return []byte(data), nil
}

func intArg(name, value string) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, domain.Invalid(name, "must be an integer, got %q", value)
	}
	return n, nil
}

func noneOrTwoArgs(_ *cobra.Command, args []string) error {
	if len(args) != 0 && len(args) != 2 {
		return domain.Invalid("args", "takes no arguments or <type> <id>")
	}
	return nil
}

func pageFlags(cmd *cobra.Command, opts *domain.PageOptions) {
	cmd.Flags().IntVar(&opts.Limit, "limit", domain.DefaultLimit, "page size")
	cmd.Flags().IntVar(&opts.Offset, "offset", 0, "entries to skip")
}

func (a *app) createCmd() *cobra.Command {
	var data string
	cmd := &cobra.Command{
		Use:   "create <type>",
		Short: "Create a record at version 1",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ops, err := a.ops(args[0])
			if err != nil {
				return err
			}
			raw, err := readData(data)
			if err != nil {
				return err
			}
			out, err := ops.create(cmd.Context(), raw)
			if err != nil {
				return err
			}
			return a.render(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().StringVar(&data, "data", "", "record JSON, or @file")
	return cmd
}

func (a *app) getCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <type> <id>",
		Short: "Show a live record",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ops, err := a.ops(args[0])
			if err != nil {
				return err
			}
			out, err := ops.get(cmd.Context(), args[1])
			if err != nil {
				return err
			}
			return a.render(cmd.OutOrStdout(), out)
		},
	}
}

func (a *app) saveCmd() *cobra.Command {
	var (
		data    string
		version int
	)
	cmd := &cobra.Command{
		Use:   "save <type> <id>",
		Short: "Replace a record's state if --version is current",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ops, err := a.ops(args[0])
			if err != nil {
				return err
			}
			raw, err := readData(data)
			if err != nil {
				return err
			}
			out, err := ops.save(cmd.Context(), args[1], version, raw)
			if err != nil {
				return err
			}
			return a.render(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().StringVar(&data, "data", "", "record JSON, or @file")
	cmd.Flags().IntVar(&version, "version", 0, "expected current version")
	_ = cmd.MarkFlagRequired("version")
	return cmd
}

func (a *app) deleteCmd() *cobra.Command {
	var version int
	cmd := &cobra.Command{
		Use:   "delete <type> <id>",
		Short: "Delete a record if --version is current",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ops, err := a.ops(args[0])
			if err != nil {
				return err
			}
			if err := ops.delete(cmd.Context(), args[1], version); err != nil {
				return err
			}
			return a.render(cmd.OutOrStdout(), map[string]any{"deleted": args[1]})
		},
	}
	cmd.Flags().IntVar(&version, "version", 0, "expected current version")
	_ = cmd.MarkFlagRequired("version")
	return cmd
}

func (a *app) listCmd() *cobra.Command {
	var opts query.ListOptions
	cmd := &cobra.Command{
		Use:   "list <type>",
		Short: "List records with sorting and filtering",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ops, err := a.ops(args[0])
			if err != nil {
				return err
			}
			out, err := ops.list(cmd.Context(), opts)
			if err != nil {
				return err
			}
			return a.render(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().IntVar(&opts.Limit, "limit", domain.DefaultLimit, "page size")
	cmd.Flags().IntVar(&opts.Offset, "offset", 0, "entries to skip")
	cmd.Flags().StringVar(&opts.SortField, "sort", "", "sort field")
	cmd.Flags().StringVar(&opts.SortOrder, "order", "", "asc or desc")
	cmd.Flags().StringVar(&opts.OrderBy, "order-by", "", `ordering such as "surname desc, given_name"`)
	cmd.Flags().StringVar(&opts.Filter, "filter", "", `filter such as 'surname = "Smith"'`)
	return cmd
}

func (a *app) searchCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "search <type> <query>",
		Short: "Search records by text",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ops, err := a.ops(args[0])
			if err != nil {
				return err
			}
			out, err := ops.search(cmd.Context(), args[1], limit)
			if err != nil {
				return err
			}
			return a.render(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", domain.DefaultLimit, "maximum results")
	return cmd
}

func (a *app) historyCmd() *cobra.Command {
	var (
		opts   domain.PageOptions
		filter history.GlobalFilter
		entity string
		action string
	)
	cmd := &cobra.Command{
		Use:   "history [<type> <id>]",
		Short: "Show the change ledger of one record, or the global ledger",
		Args:  noneOrTwoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 2 {
				ops, err := a.ops(args[0])
				if err != nil {
					return err
				}
				out, err := ops.history(cmd.Context(), args[1], opts)
				if err != nil {
					return err
				}
				return a.render(cmd.OutOrStdout(), out)
			}
			filter.Entity, filter.Action = domain.EntityType(entity), domain.Action(action)
			out, err := a.svc.GlobalHistory(cmd.Context(), filter, opts)
			if err != nil {
				return err
			}
			return a.render(cmd.OutOrStdout(), out)
		},
	}
	pageFlags(cmd, &opts)
	cmd.Flags().StringVar(&entity, "entity", "", "global ledger: only this entity type")
	cmd.Flags().StringVar(&action, "action", "", "global ledger: only this action")
	return cmd
}

func (a *app) restorePointsCmd() *cobra.Command {
	var opts domain.PageOptions
	cmd := &cobra.Command{
		Use:   "restore-points <type> <id>",
		Short: "List the versions a record can be rolled back to",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ops, err := a.ops(args[0])
			if err != nil {
				return err
			}
			out, err := ops.restorePoints(cmd.Context(), args[1], opts)
			if err != nil {
				return err
			}
			return a.render(cmd.OutOrStdout(), out)
		},
	}
	pageFlags(cmd, &opts)
	return cmd
}

func (a *app) rollbackCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rollback <type> <id> <version>",
		Short: "Restore a record's past version as a new version",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ops, err := a.ops(args[0])
			if err != nil {
				return err
			}
			target, err := intArg("version", args[2])
			if err != nil {
				return err
			}
			out, err := ops.rollback(cmd.Context(), args[1], target)
			if err != nil {
				return err
			}
			return a.render(cmd.OutOrStdout(), out)
		},
	}
}
