// Package layout classifies statement text into a layout variant and locates
// the transaction table inside the line sequence. Locating the table doubles
// as PII minimization: the preamble (names, addresses, account numbers) is cut
// off before any later stage sees it.
package layout

import (
	"strings"

	"github.com/cloudflare/ahocorasick"
	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/FACorreiaa/statement-pipeline/internal/domain/statement"
)

// Signal keyword sets. English plus Arabic equivalents; matching is
// signal-presence based, not grammar based, so a partially garbled header
// still classifies.
var (
	balanceKeywords = []string{"balance", "رصيد", "الرصيد"}
	debitKeywords   = []string{"debit", "debits", "withdrawal", "مدين"}
	creditKeywords  = []string{"credit", "credits", "deposit", "دائن"}
	amountKeywords  = []string{"amount", "المبلغ", "مبلغ"}
	postingKeywords = []string{"posting date", "post date", "posted", "تاريخ القيد"}
	dateKeywords    = []string{"date", "transaction date", "تاريخ"}
)

// footerSignatures end the table: legal boilerplate, page markers, bank
// disclaimers. Matched case-insensitively anywhere in a line.
var footerSignatures = []string{
	"page ",
	"continued on",
	"end of statement",
	"closing balance",
	"important information",
	"terms and conditions",
	"this statement is",
	"please examine",
	"disclaimer",
	"all rights reserved",
	"customer service",
	"للشكاوى",
	"خدمة العملاء",
}

var footerMatcher = ahocorasick.NewStringMatcher(footerSignatures)

// maxHeaderSearchLines bounds how deep into the document the header search
// goes before falling back to the first date-bearing line.
const maxHeaderSearchLines = 40

// DetectType classifies statement text into a layout variant. It is total:
// text that matches no known schema yields TypeUnknown, never an error.
func DetectType(text string) statement.Type {
	lower := strings.ToLower(text)

	hasBalance := containsAnySignal(lower, balanceKeywords)
	hasDebit := containsAnySignal(lower, debitKeywords)
	hasCredit := containsAnySignal(lower, creditKeywords)
	hasAmount := containsAnySignal(lower, amountKeywords)
	hasPosting := containsAnySignal(lower, postingKeywords)

	switch {
	case hasBalance && hasDebit && hasCredit:
		return statement.TypeTableWithBalance
	case hasPosting && hasAmount && !hasBalance:
		return statement.TypeDualDateSingleAmount
	default:
		return statement.TypeUnknown
	}
}

// LocateTableBounds finds the half-open line range containing transaction
// rows. Start is the line after a detected header, or the first date-bearing
// line when no header is found within the search prefix. End is the first
// footer-signature line at or after Start, or len(lines).
func LocateTableBounds(lines []string, typ statement.Type) statement.TableBounds {
	start := -1

	limit := len(lines)
	if limit > maxHeaderSearchLines {
		limit = maxHeaderSearchLines
	}
	for i := 0; i < limit; i++ {
		if isHeaderLine(lines[i], typ) {
			start = i + 1
			break
		}
	}

	if start == -1 {
		for i, line := range lines {
			if statement.HasDateToken(line) {
				start = i
				break
			}
		}
	}
	if start == -1 || start > len(lines) {
		return statement.TableBounds{Start: len(lines), End: len(lines)}
	}

	end := len(lines)
	for i := start; i < len(lines); i++ {
		if isFooterLine(lines[i]) {
			end = i
			break
		}
	}
	if end < start {
		end = start
	}

	return statement.TableBounds{Start: start, End: end}
}

// isHeaderLine reports whether a line looks like the table's column header for
// the given layout. Two distinct column-name signals are required so stray
// occurrences of "date" in the preamble do not win.
func isHeaderLine(line string, typ statement.Type) bool {
	lower := strings.ToLower(line)
	if statement.HasAmountToken(lower) {
		// A real header names columns; it never carries amounts.
		return false
	}

	hits := 0
	if containsAnySignal(lower, dateKeywords) {
		hits++
	}
	switch typ {
	case statement.TypeTableWithBalance:
		if containsAnySignal(lower, debitKeywords) {
			hits++
		}
		if containsAnySignal(lower, creditKeywords) {
			hits++
		}
		if containsAnySignal(lower, balanceKeywords) {
			hits++
		}
	case statement.TypeDualDateSingleAmount:
		if containsAnySignal(lower, postingKeywords) {
			hits++
		}
		if containsAnySignal(lower, amountKeywords) {
			hits++
		}
	default:
		if containsAnySignal(lower, amountKeywords) {
			hits++
		}
		if containsAnySignal(lower, balanceKeywords) {
			hits++
		}
	}
	return hits >= 2
}

func isFooterLine(line string) bool {
	lower := strings.ToLower(strings.TrimSpace(line))
	if lower == "" {
		return false
	}
	return len(footerMatcher.Match([]byte(lower))) > 0
}

// containsAnySignal reports whether any keyword occurs in s, either as an
// exact substring or as a near-miss token (edit distance 1) to absorb OCR
// garbling like "ba1ance" or "debt".
func containsAnySignal(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	// Fuzzy pass over individual tokens for single-word keywords.
	for _, tok := range strings.Fields(s) {
		tok = strings.Trim(tok, ".,:;|")
		if len(tok) < 4 {
			continue
		}
		for _, kw := range keywords {
			if strings.ContainsRune(kw, ' ') {
				continue
			}
			if len(kw) >= 5 && fuzzy.LevenshteinDistance(tok, kw) <= 1 {
				return true
			}
		}
	}
	return false
}
