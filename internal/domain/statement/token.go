package statement

import "regexp"

// Token patterns shared by the layout detector, the row reconstructor and the
// field parser. A "date-shaped" or "amount-shaped" token is a purely syntactic
// notion; semantic validation happens in the field parser.
var (
	// dateTokenRe matches DD/MM/YYYY, DD-MM-YYYY, DD/MM/YY and YYYY-MM-DD.
	dateTokenRe = regexp.MustCompile(`\b(\d{1,2}[/-]\d{1,2}[/-]\d{2,4}|\d{4}-\d{2}-\d{2})\b`)

	// amountTokenRe matches the supported amount shapes:
	//   8,457.90    grouped thousands with dot decimals
	//   108.35      bare dot decimals
	//   108.35,AED  dot decimals with a comma-delimited currency suffix
	//   302,00      continental decimal comma
	amountTokenRe = regexp.MustCompile(`-?\d{1,3}(?:,\d{3})+\.\d{2}(?:,[A-Za-z]{3})?|-?\d+\.\d{2}(?:,[A-Za-z]{3})?|-?\d+,\d{2}\b`)
)

// HasDateToken reports whether s contains a date-shaped token.
func HasDateToken(s string) bool {
	return dateTokenRe.MatchString(s)
}

// DateTokens returns every date-shaped token in s, in order.
func DateTokens(s string) []string {
	return dateTokenRe.FindAllString(s, -1)
}

// DateTokenIndex returns the byte offsets of the first date-shaped token in s,
// or nil when there is none.
func DateTokenIndex(s string) []int {
	return dateTokenRe.FindStringIndex(s)
}

// DateTokenIndexes returns the byte offsets of every date-shaped token in s.
func DateTokenIndexes(s string) [][]int {
	return dateTokenRe.FindAllStringIndex(s, -1)
}

// HasAmountToken reports whether s contains an amount-shaped token.
func HasAmountToken(s string) bool {
	return amountTokenRe.MatchString(s)
}

// AmountTokens returns every amount-shaped token in s, in order.
func AmountTokens(s string) []string {
	return amountTokenRe.FindAllString(s, -1)
}

// AmountTokenIndexes returns the byte offsets of every amount-shaped token.
func AmountTokenIndexes(s string) [][]int {
	return amountTokenRe.FindAllStringIndex(s, -1)
}
