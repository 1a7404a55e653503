package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/koustreak/fkguard/internal/errs"
)

var reportsCmd = &cobra.Command{
	Use:   "reports",
	Short: "Browse archived diagnosis reports",
}

var reportsListCmd = &cobra.Command{
	Use:   "list [prefix]",
	Short: "List report keys, optionally under a prefix such as reports/2024/05",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runReportsList,
}

var reportsGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print one report as JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runReportsGet,
}

func init() {
	rootCmd.AddCommand(reportsCmd)
	reportsCmd.AddCommand(reportsListCmd, reportsGetCmd)
	reportsListCmd.Flags().IntP("limit", "n", 50, "maximum number of keys to list (0 for all)")
}

func runReportsList(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	prefix := "reports/"
	if len(args) == 1 {
		prefix = args[0]
	}

	ctx, cancel := queryContext(cmd.Context())
	defer cancel()

	store, err := openArchive(ctx, cfg.Archive)
	if err != nil {
		return err
	}
	if store == nil {
		return errs.New(errs.ErrKindInvalidInput, "report archive is disabled (set archive.enabled)")
	}
	defer store.Close()

	keys, err := store.List(ctx, prefix, limit)
	if err != nil {
		return err
	}
	for _, k := range keys {
		fmt.Fprintln(cmd.OutOrStdout(), k)
	}
	return nil
}

func runReportsGet(cmd *cobra.Command, args []string) error {
	ctx, cancel := queryContext(cmd.Context())
	defer cancel()

	store, err := openArchive(ctx, cfg.Archive)
	if err != nil {
		return err
	}
	if store == nil {
		return errs.New(errs.ErrKindInvalidInput, "report archive is disabled (set archive.enabled)")
	}
	defer store.Close()

	report, err := store.Get(ctx, args[0])
	if err != nil {
		return err
	}
	return newPrinter(cmd.OutOrStdout()).encode(report)
}
