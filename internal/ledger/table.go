package ledger

import (
	"strings"

	"github.com/rkocherlakota/pepsico-dpod-target/internal/entity"
)

// table is a rectangular in-memory copy of a spreadsheet ledger.
type table struct {
	header  []string
	records []map[string]string
}

func newTable() *table {
	return &table{header: append([]string(nil), entity.LedgerColumns...)}
}

// tableFromRows builds a table from a raw grid whose first row is the header.
// Short rows are backfilled with the empty marker; blank header cells are dropped.
func tableFromRows(grid [][]string) *table {
	t := newTable()
	if len(grid) == 0 {
		return t
	}
	raw := grid[0]
	known := make(map[string]struct{}, len(t.header))
	for _, c := range t.header {
		known[c] = struct{}{}
	}
	for _, c := range raw {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		if _, ok := known[c]; !ok {
			known[c] = struct{}{}
			t.header = append(t.header, c)
		}
	}
	for _, cells := range grid[1:] {
		rec := make(map[string]string, len(t.header))
		for _, c := range t.header {
			rec[c] = entity.EmptyMarker
		}
		empty := true
		for i, c := range raw {
			c = strings.TrimSpace(c)
			if c == "" || i >= len(cells) {
				continue
			}
			rec[c] = cells[i]
			if strings.TrimSpace(cells[i]) != "" {
				empty = false
			}
		}
		if empty {
			continue
		}
		t.records = append(t.records, rec)
	}
	return t
}

// missingFrom lists fixed columns absent from a raw header row.
func missingFrom(rawHeader []string) []string {
	have := make(map[string]struct{}, len(rawHeader))
	for _, c := range rawHeader {
		have[strings.TrimSpace(c)] = struct{}{}
	}
	var missing []string
	for _, c := range entity.LedgerColumns {
		if _, ok := have[c]; !ok {
			missing = append(missing, c)
		}
	}
	return missing
}

// duplicates lists filenames that occur more than once.
func (t *table) duplicates() []string {
	seen := map[string]int{}
	var dups []string
	for _, r := range t.records {
		key := r[entity.ColFilename]
		seen[key]++
		if seen[key] == 2 {
			dups = append(dups, key)
		}
	}
	return dups
}

// collapse removes duplicate keys, keeping the newest (last) row in the
// position of the first occurrence.
func (t *table) collapse() {
	idx := map[string]int{}
	out := t.records[:0:0]
	for _, r := range t.records {
		key := r[entity.ColFilename]
		if i, ok := idx[key]; ok {
			out[i] = r
			continue
		}
		idx[key] = len(out)
		out = append(out, r)
	}
	t.records = out
}

// upsert replaces rows with matching filenames in place and appends new ones.
// A replaced row is written whole: columns the new row does not set are blank.
func (t *table) upsert(rows []entity.LedgerRow) {
	t.collapse()
	idx := make(map[string]int, len(t.records))
	for i, r := range t.records {
		idx[r[entity.ColFilename]] = i
	}
	for _, row := range rows {
		rec := row.Record()
		for k := range rec {
			t.addColumn(k)
		}
		full := make(map[string]string, len(t.header))
		for _, c := range t.header {
			full[c] = entity.EmptyMarker
		}
		for k, v := range rec {
			full[k] = v
		}
		if i, ok := idx[row.Filename]; ok {
			t.records[i] = full
			continue
		}
		idx[row.Filename] = len(t.records)
		t.records = append(t.records, full)
	}
}

func (t *table) addColumn(c string) {
	for _, h := range t.header {
		if h == c {
			return
		}
	}
	t.header = append(t.header, c)
	for _, r := range t.records {
		r[c] = entity.EmptyMarker
	}
}

func (t *table) grid() [][]string {
	out := make([][]string, 0, len(t.records)+1)
	out = append(out, append([]string(nil), t.header...))
	for _, r := range t.records {
		line := make([]string, len(t.header))
		for i, c := range t.header {
			line[i] = r[c]
		}
		out = append(out, line)
	}
	return out
}

func (t *table) rows() []entity.LedgerRow {
	out := make([]entity.LedgerRow, 0, len(t.records))
	for _, r := range t.records {
		out = append(out, entity.RowFromRecord(r))
	}
	return out
}

var fixedColumns = func() map[string]struct{} {
	m := make(map[string]struct{}, len(entity.LedgerColumns))
	for _, c := range entity.LedgerColumns {
		m[c] = struct{}{}
	}
	return m
}()

func isFixed(c string) bool {
	_, ok := fixedColumns[c]
	return ok
}
