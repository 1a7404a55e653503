package main

import (
	"github.com/spf13/cobra"
)

var diagnoseCmd = &cobra.Command{
	Use:   "diagnose <sql> [args...]",
	Short: "Report the foreign keys a statement would break, without running it",
	Long: `Run only the diagnosis probes for a statement. The statement itself
is never executed, so the report describes what would fail against the
current data.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runDiagnose,
}

func init() {
	rootCmd.AddCommand(diagnoseCmd)
	diagnoseCmd.Flags().Bool("json", false, "print the diagnosis as JSON")
}

func runDiagnose(cmd *cobra.Command, args []string) error {
	asJSON, _ := cmd.Flags().GetBool("json")

	ctx, cancel := queryContext(cmd.Context())
	defer cancel()

	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	d := s.guard.Diagnoser().Diagnose(ctx, args[0], parseArgs(args[1:]))

	p := newPrinter(cmd.OutOrStdout())
	if asJSON {
		return p.encode(d)
	}
	p.diagnosis(d)
	if len(d.Violations) > 0 {
		return errReported
	}
	return nil
}
