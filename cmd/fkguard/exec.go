package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/koustreak/fkguard/internal/database"
	"github.com/koustreak/fkguard/internal/fkcheck"
)

var execCmd = &cobra.Command{
	Use:   "exec <sql> [args...]",
	Short: "Execute a statement through the guard",
	Long: `Execute a statement. When the database rejects it with a constraint
error, the failing foreign key and value are printed and the command
exits non-zero.

Arguments bind to the statement's placeholders in order. NULL binds
nil, numbers bind as numbers, and '...' forces a string. Without
arguments the statement runs as-is and only the table's foreign keys
are reported on failure.`,
	Example: `  fkguard exec "INSERT INTO orders (id, customer_id) VALUES (?, ?)" 7 42
  fkguard exec "DELETE FROM customers WHERE id = ?" 1`,
	Args: cobra.MinimumNArgs(1),
	RunE: runExec,
}

func init() {
	rootCmd.AddCommand(execCmd)
	execCmd.Flags().Bool("json", false, "print the result or diagnosis as JSON")
}

func runExec(cmd *cobra.Command, args []string) error {
	asJSON, _ := cmd.Flags().GetBool("json")

	ctx, cancel := queryContext(cmd.Context())
	defer cancel()

	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	var res database.Result
	if len(args) == 1 {
		res, err = s.guard.ExecRaw(ctx, args[0])
	} else {
		res, err = s.guard.Exec(ctx, args[0], parseArgs(args[1:])...)
	}

	p := newPrinter(cmd.OutOrStdout())
	if err != nil {
		var fkErr *fkcheck.Error
		if !errors.As(err, &fkErr) {
			return err
		}
		if asJSON {
			if err := p.encode(fkErr.Diagnosis); err != nil {
				return err
			}
		} else {
			p.failure(fkErr)
		}
		return errReported
	}

	if asJSON {
		return p.encode(map[string]int64{
			"rows_affected":  res.RowsAffected,
			"last_insert_id": res.LastInsertID,
		})
	}
	p.result(res)
	return nil
}
