package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"

	"github.com/rkocherlakota/pepsico-dpod-target/constants"
	"github.com/rkocherlakota/pepsico-dpod-target/internal/common"
	"github.com/rkocherlakota/pepsico-dpod-target/internal/entity"
	"github.com/rkocherlakota/pepsico-dpod-target/internal/ledger"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func seedLedger(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "results.xlsx")
	store := ledger.NewXLSX(path, "Results", nil, nil)
	rows := []entity.LedgerRow{
		{Filename: "a.pdf", InvoiceNumber: entity.Int64Ptr(12), IsValid: constants.Valid, ProcessingStatus: constants.StatusSuccess},
		entity.RowFromFailed("b.pdf", "unreadable", entity.Timing{ProcessType: constants.ProcessBatch}),
	}
	if err := store.Upsert(context.Background(), rows...); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLedgerShowJSON(t *testing.T) {
	path := seedLedger(t)
	out, err := run(t, "--ledger", path, "--ledger-backend", "xlsx", "ledger", "show", "--json")
	if err != nil {
		t.Fatalf("ledger show: %v", err)
	}
	var recs []map[string]string
	if err := json.Unmarshal([]byte(out), &recs); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if len(recs) != 2 || recs[0]["invoice_number"] != "12" || recs[1]["processing_status"] != "Failed" {
		t.Errorf("records = %v", recs)
	}
}

func TestLedgerShowUnknownFilename(t *testing.T) {
	path := seedLedger(t)
	_, err := run(t, "--ledger", path, "--ledger-backend", "xlsx", "ledger", "show", "ghost.pdf")
	if !errors.Is(err, common.ErrNotFound) {
		t.Errorf("err = %v, want not found", err)
	}
}

func TestLedgerCheckClean(t *testing.T) {
	path := seedLedger(t)
	out, err := run(t, "--ledger", path, "--ledger-backend", "xlsx", "ledger", "check")
	if err != nil {
		t.Fatalf("ledger check: %v\n%s", err, out)
	}
	if !bytes.Contains([]byte(out), []byte("rows:     2")) {
		t.Errorf("output = %s", out)
	}
}

func TestInvalidConfigRejected(t *testing.T) {
	_, err := run(t, "--ledger-backend", "mongo", "ledger", "show")
	if !errors.Is(err, common.ErrInvalidInput) {
		t.Errorf("err = %v, want invalid input", err)
	}
}
