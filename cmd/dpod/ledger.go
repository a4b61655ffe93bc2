package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rkocherlakota/pepsico-dpod-target/internal/common"
	"github.com/rkocherlakota/pepsico-dpod-target/internal/entity"
	"github.com/rkocherlakota/pepsico-dpod-target/internal/ledger"
)

func newLedgerCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Read and check the results ledger",
	}
	cmd.AddCommand(newLedgerShowCmd(a), newLedgerCheckCmd(a))
	return cmd
}

func newLedgerShowCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "show [FILENAME]",
		Short: "Print every ledger row, or the row for one filename",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := a.openLedger(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			var rows []entity.LedgerRow
			if len(args) == 1 {
				row, err := store.Lookup(ctx, args[0])
				if err != nil {
					return err
				}
				rows = []entity.LedgerRow{row}
			} else if rows, err = store.List(ctx); err != nil {
				return err
			}

			if asJSON {
				recs := make([]map[string]string, len(rows))
				for i, r := range rows {
					recs[i] = r.Record()
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(recs)
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, strings.ToUpper(strings.Join(entity.LedgerColumns, "\t")))
			for _, r := range rows {
				fmt.Fprintln(w, strings.Join(r.Values(entity.LedgerColumns), "\t"))
			}
			return w.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print rows as JSON objects")
	return cmd
}

func newLedgerCheckCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Report duplicate filenames and missing or extra columns",
		Long: `Inspect the ledger as stored. The command fails when a filename appears more
than once or a fixed column is missing, which happens only when the store was
edited by hand.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			store, err := a.openLedger(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			insp, ok := store.(ledger.Inspector)
			if !ok {
				return fmt.Errorf("%w: backend %s cannot be inspected", common.ErrInvalidInput, a.cfg.Ledger.Backend)
			}
			rep, err := insp.Inspect(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "backend:  %s\nlocation: %s\nrows:     %d\n", rep.Backend, rep.Location, rep.Rows)
			fmt.Fprintf(out, "duplicates: %s\n", listOrNone(rep.DuplicateKeys))
			fmt.Fprintf(out, "missing columns: %s\n", listOrNone(rep.MissingColumns))
			fmt.Fprintf(out, "extra columns: %s\n", listOrNone(rep.ExtraColumns))
			if len(rep.DuplicateKeys) > 0 || len(rep.MissingColumns) > 0 {
				return fmt.Errorf("%w: ledger is not consistent", common.ErrValidation)
			}
			return nil
		},
	}
}

func listOrNone(s []string) string {
	if len(s) == 0 {
		return "none"
	}
	return strings.Join(s, ", ")
}
