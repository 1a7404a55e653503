package main

import (
	"github.com/spf13/cobra"

	"github.com/koustreak/fkguard/internal/schema"
)

var fksCmd = &cobra.Command{
	Use:   "fks <table>",
	Short: "Show a table's primary key and the foreign keys in and out of it",
	Args:  cobra.ExactArgs(1),
	RunE:  runFKs,
}

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Show every table with its primary and foreign keys",
	Args:  cobra.NoArgs,
	RunE:  runSchema,
}

func init() {
	rootCmd.AddCommand(fksCmd, schemaCmd)
	fksCmd.Flags().Bool("json", false, "print as JSON")
	schemaCmd.Flags().Bool("json", false, "print as JSON")
}

func runFKs(cmd *cobra.Command, args []string) error {
	asJSON, _ := cmd.Flags().GetBool("json")

	ctx, cancel := queryContext(cmd.Context())
	defer cancel()

	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	ti, err := schema.InspectTable(ctx, s.guard.Catalog(), args[0])
	if err != nil {
		return err
	}

	p := newPrinter(cmd.OutOrStdout())
	if asJSON {
		return p.encode(ti)
	}
	p.table(ti)
	return nil
}

func runSchema(cmd *cobra.Command, _ []string) error {
	asJSON, _ := cmd.Flags().GetBool("json")

	ctx, cancel := queryContext(cmd.Context())
	defer cancel()

	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	info, err := schema.Inspect(ctx, s.guard.Catalog())
	if err != nil {
		return err
	}

	p := newPrinter(cmd.OutOrStdout())
	if asJSON {
		return p.encode(info)
	}
	for i := range info.Tables {
		p.table(&info.Tables[i])
	}
	return nil
}
