// Package rows merges raw statement lines into logical transaction rows.
// OCR and PDF text extraction routinely split one transaction across several
// physical lines; this package runs a small state machine that re-joins them
// while bounding the damage a false merge can do.
package rows

import (
	"strings"

	"github.com/FACorreiaa/statement-pipeline/internal/domain/statement"
)

// continuationCap limits how many continuation lines may join one row.
// Pathological OCR fragmentation otherwise grows a row without bound.
const continuationCap = 3

// state of the reconstruction machine.
type state int

const (
	awaitingRow state = iota
	accumulating
)

// Reconstructor merges lines into rows for one layout variant.
type Reconstructor struct {
	typ statement.Type
}

// NewReconstructor returns a reconstructor for the given layout.
func NewReconstructor(typ statement.Type) *Reconstructor {
	return &Reconstructor{typ: typ}
}

// Reconstruct runs the state machine over lines, which must already be sliced
// to the table bounds. lineOffset is the index of lines[0] in the source
// document, recorded in each row's provenance span.
//
// Transitions:
//   - a line that opens a row (layout-dependent date test) flushes the
//     accumulated row and starts a new one
//   - a continuation line carrying a fresh date token forces a flush+restart
//     regardless of the cap: the date is assumed to belong to a transaction
//     whose line merge failed
//   - exceeding the continuation cap forces a flush, and the offending line
//     starts the next accumulation
//
// A row is emitted only when it carries both a date-shaped and an
// amount-shaped token; anything else is header noise or garbage.
func (r *Reconstructor) Reconstruct(lines []string, lineOffset int) []statement.Row {
	var (
		out       []statement.Row
		cur       strings.Builder
		curStart  int
		curEnd    int
		contLines int
		st        = awaitingRow
	)

	flush := func() {
		if st != accumulating {
			return
		}
		text := strings.TrimSpace(cur.String())
		if statement.HasDateToken(text) && statement.HasAmountToken(text) {
			out = append(out, statement.Row{
				Text:      text,
				LineStart: curStart,
				LineEnd:   curEnd,
			})
		}
		cur.Reset()
		contLines = 0
		st = awaitingRow
	}

	begin := func(line string, idx int) {
		cur.Reset()
		cur.WriteString(strings.TrimSpace(line))
		curStart = idx
		curEnd = idx
		contLines = 0
		st = accumulating
	}

	for i, line := range lines {
		idx := lineOffset + i
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		if r.opensRow(trimmed) {
			flush()
			begin(trimmed, idx)
			continue
		}

		if st == awaitingRow {
			// Noise before the first real row.
			continue
		}

		if statement.HasDateToken(trimmed) {
			// Fresh date on a continuation: new transaction whose date the
			// line merger failed to isolate.
			flush()
			begin(trimmed, idx)
			continue
		}

		if contLines >= continuationCap {
			flush()
			begin(trimmed, idx)
			continue
		}

		cur.WriteByte(' ')
		cur.WriteString(trimmed)
		curEnd = idx
		contLines++
	}
	flush()

	return out
}

// opensRow is the layout-dependent row-start guard: TableWithBalance rows
// begin with a date token; dual-date rows carry two of them.
func (r *Reconstructor) opensRow(line string) bool {
	switch r.typ {
	case statement.TypeDualDateSingleAmount:
		return len(statement.DateTokens(line)) >= 2
	default:
		loc := statement.DateTokenIndex(line)
		return loc != nil && loc[0] == 0
	}
}
