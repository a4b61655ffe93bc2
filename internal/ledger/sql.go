package ledger

import (
	"fmt"
	"strings"

	"github.com/rkocherlakota/pepsico-dpod-target/internal/entity"
)

const tableName = "dpod_ledger"

// dialect captures the few places the SQL backends disagree.
type dialect struct {
	name        string
	placeholder func(n int) string
	// seqColumn is an extra DDL column that records insertion order, if any.
	seqColumn string
	orderBy   string
}

var (
	sqliteDialect = dialect{
		name:        "sqlite",
		placeholder: func(int) string { return "?" },
		orderBy:     "rowid",
	}
	postgresDialect = dialect{
		name:        "postgres",
		placeholder: func(n int) string { return fmt.Sprintf("$%d", n) },
		seqColumn:   "seq BIGSERIAL",
		orderBy:     "seq",
	}
)

// Every ledger column is stored in its display form, so all three backends
// read back identically through entity.RowFromRecord.
func (d dialect) createTableSQL() string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE IF NOT EXISTS %s (\n", tableName)
	for i, c := range entity.LedgerColumns {
		if i == 0 {
			fmt.Fprintf(&b, "\t%s TEXT PRIMARY KEY", c)
		} else {
			fmt.Fprintf(&b, ",\n\t%s TEXT NOT NULL DEFAULT ''", c)
		}
	}
	if d.seqColumn != "" {
		fmt.Fprintf(&b, ",\n\t%s", d.seqColumn)
	}
	b.WriteString("\n)")
	return b.String()
}

func (d dialect) upsertSQL() string {
	cols := entity.LedgerColumns
	ph := make([]string, len(cols))
	set := make([]string, 0, len(cols)-1)
	for i, c := range cols {
		ph[i] = d.placeholder(i + 1)
		if c != entity.ColFilename {
			set = append(set, fmt.Sprintf("%s = excluded.%s", c, c))
		}
	}
	return fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s) DO UPDATE SET %s",
		tableName,
		strings.Join(cols, ", "),
		strings.Join(ph, ", "),
		entity.ColFilename,
		strings.Join(set, ", "),
	)
}

func (d dialect) selectSQL(byFilename bool) string {
	q := fmt.Sprintf("SELECT %s FROM %s", strings.Join(entity.LedgerColumns, ", "), tableName)
	if byFilename {
		return q + fmt.Sprintf(" WHERE %s = %s", entity.ColFilename, d.placeholder(1))
	}
	return q + " ORDER BY " + d.orderBy
}

func (d dialect) columnsSQL() string {
	return fmt.Sprintf("SELECT * FROM %s LIMIT 0", tableName)
}

func (d dialect) countSQL() string {
	return fmt.Sprintf("SELECT COUNT(*) FROM %s", tableName)
}

// rowArgs renders a row as statement arguments in LedgerColumns order.
func rowArgs(r entity.LedgerRow) []any {
	vals := r.Values(entity.LedgerColumns)
	args := make([]any, len(vals))
	for i, v := range vals {
		args[i] = v
	}
	return args
}

// scanTargets returns destinations for one selected row and a func that
// assembles them into a LedgerRow.
func scanTargets() ([]any, func() entity.LedgerRow) {
	vals := make([]string, len(entity.LedgerColumns))
	dest := make([]any, len(vals))
	for i := range vals {
		dest[i] = &vals[i]
	}
	return dest, func() entity.LedgerRow {
		rec := make(map[string]string, len(vals))
		for i, c := range entity.LedgerColumns {
			rec[c] = vals[i]
		}
		return entity.RowFromRecord(rec)
	}
}

// columnReport fills the schema fields of a Report from the live column list.
func columnReport(rep *Report, live []string) {
	rep.MissingColumns = missingFrom(live)
	for _, c := range live {
		if !isFixed(c) && c != "seq" {
			rep.ExtraColumns = append(rep.ExtraColumns, c)
		}
	}
}
