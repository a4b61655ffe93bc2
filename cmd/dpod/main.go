package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/rkocherlakota/pepsico-dpod-target/internal/common"
	"github.com/rkocherlakota/pepsico-dpod-target/internal/core"
	"github.com/rkocherlakota/pepsico-dpod-target/internal/core/ocr"
	"github.com/rkocherlakota/pepsico-dpod-target/internal/detect"
	"github.com/rkocherlakota/pepsico-dpod-target/internal/entity"
	"github.com/rkocherlakota/pepsico-dpod-target/internal/ledger"
	"github.com/rkocherlakota/pepsico-dpod-target/internal/metrics"
)

var version = "dev"

// rootFlags override the environment configuration.
type rootFlags struct {
	ledgerBackend string
	ledgerPath    string
	ocrEngine     string
	logLevel      string
	logFormat     string
}

// app is the wiring shared by every subcommand.
type app struct {
	cfg     *common.Config
	logger  *slog.Logger
	reg     *prometheus.Registry
	metrics *metrics.Metrics
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		flags rootFlags
		a     = &app{}
	)
	root := &cobra.Command{
		Use:   "dpod",
		Short: "Extract invoice fields from delivery documents and keep a results ledger",
		Long: `dpod recognizes the pages of scanned delivery invoices, extracts invoice
number, store number, dates, total quantity and the Frito-Lay marker from each
page, merges them into one record per document and upserts that record into a
ledger keyed by filename.

Configuration comes from the environment (and a .env file when present).
Flags override the matching variables.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(flags, cmd.ErrOrStderr())
		},
	}
	pf := root.PersistentFlags()
	pf.StringVar(&flags.ledgerBackend, "ledger-backend", "", "ledger backend: xlsx, sqlite or postgres (LEDGER_BACKEND)")
	pf.StringVar(&flags.ledgerPath, "ledger", "", "ledger file path (LEDGER_PATH)")
	pf.StringVar(&flags.ocrEngine, "ocr", "", "page recognizer: tesseract, vision or text (OCR_ENGINE)")
	pf.StringVar(&flags.logLevel, "log-level", "", "debug, info, warn or error (LOG_LEVEL)")
	pf.StringVar(&flags.logFormat, "log-format", "", "json or text (LOG_FORMAT)")

	root.AddCommand(
		newExtractCmd(a),
		newBatchCmd(a),
		newServeCmd(a),
		newLedgerCmd(a),
	)
	return root
}

func (a *app) init(f rootFlags, logOut io.Writer) error {
	cfg := common.LoadConfig()
	if f.ledgerBackend != "" {
		cfg.Ledger.Backend = f.ledgerBackend
	}
	if f.ledgerPath != "" {
		cfg.Ledger.Path = f.ledgerPath
	}
	if f.ocrEngine != "" {
		cfg.OCR.Engine = f.ocrEngine
	}
	if f.logLevel != "" {
		cfg.Log.Level = f.logLevel
	}
	if f.logFormat != "" {
		cfg.Log.Format = f.logFormat
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = common.NewLogger(cfg.Log, logOut)

	a.reg = prometheus.NewRegistry()
	a.reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	a.metrics = metrics.New(a.reg)
	return nil
}

func (a *app) openLedger(ctx context.Context) (ledger.Store, error) {
	return ledger.Open(ctx, a.cfg.Ledger, a.metrics, a.logger)
}

// processor builds the page source and detector from config. The closer
// releases the OCR client.
func (a *app) processor(ctx context.Context, store ledger.Store, signals *entity.Signals) (*core.Processor, io.Closer, error) {
	pages, closer, err := ocr.Open(ctx, a.cfg.OCR, a.logger)
	if err != nil {
		return nil, nil, err
	}
	var det detect.Source = detect.NewSidecarSource(a.cfg.Detection.SidecarSuffix, a.logger)
	if signals != nil {
		det = detect.StaticSource{Signals: *signals}
	}
	return core.NewProcessor(a.logger, pages, det, a.cfg.Detection.ConfThreshold, store, a.metrics), closer, nil
}
