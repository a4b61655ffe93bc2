package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/rkocherlakota/pepsico-dpod-target/constants"
	"github.com/rkocherlakota/pepsico-dpod-target/internal/common"
	"github.com/rkocherlakota/pepsico-dpod-target/internal/core"
	"github.com/rkocherlakota/pepsico-dpod-target/internal/entity"
	"github.com/rkocherlakota/pepsico-dpod-target/internal/ledger"
)

func newExtractCmd(a *app) *cobra.Command {
	var (
		noLedger  bool
		sticker   bool
		signature bool
	)
	cmd := &cobra.Command{
		Use:   "extract FILE",
		Short: "Extract one document and print its result as JSON",
		Long: `Extract one PDF or image, print the consolidated result as JSON and upsert
its ledger row.

Detection flags are read from FILE.detections.json when present. --sticker and
--signature replace the sidecar with fixed flags.`,
		Example: `  dpod extract ./in/invoice_0412.pdf
  dpod extract ./in/scan.png --sticker --signature --no-ledger`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ctx, _ = common.EnsureRequestID(ctx)

			var store ledger.Store
			if !noLedger {
				s, err := a.openLedger(ctx)
				if err != nil {
					return err
				}
				defer s.Close()
				store = s
			}

			var signals *entity.Signals
			if cmd.Flags().Changed("sticker") || cmd.Flags().Changed("signature") {
				signals = &entity.Signals{HasSticker: sticker, HasSignature: signature}
			}
			proc, closer, err := a.processor(ctx, store, signals)
			if err != nil {
				return err
			}
			defer closer.Close()

			ctx, cancel := common.WithTimeout(ctx, a.cfg.Batch.ProcessTimeout)
			defer cancel()
			res, err := proc.ProcessFile(ctx, args[0], core.FileOptions{
				ProcessType: constants.ProcessSingle,
				SkipLedger:  noLedger,
			})
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		},
	}
	cmd.Flags().BoolVar(&noLedger, "no-ledger", false, "print the result without writing a ledger row")
	cmd.Flags().BoolVar(&sticker, "sticker", false, "treat the document as carrying a delivery sticker")
	cmd.Flags().BoolVar(&signature, "signature", false, "treat the document as signed")
	return cmd
}
