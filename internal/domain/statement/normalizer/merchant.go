// Package normalizer derives a clean merchant name and a transaction kind
// from raw statement descriptions. It strips card masks, terminal references
// and trailing city/country noise, then classifies the transaction as spend,
// income, transfer or reimbursement.
package normalizer

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/statement-pipeline/internal/domain/statement"
)

// MerchantInfo is the result of normalizing one description.
type MerchantInfo struct {
	OriginalName   string
	NormalizedName string
	Category       string
	Kind           statement.Kind
}

// MerchantPattern maps a description pattern to a clean merchant name and
// category.
type MerchantPattern struct {
	Pattern  *regexp.Regexp
	Name     string
	Category string
}

// Sanitizer normalizes merchant names and classifies transaction kinds.
type Sanitizer struct {
	patterns []MerchantPattern
}

// NewSanitizer creates a sanitizer with the built-in merchant patterns.
func NewSanitizer() *Sanitizer {
	return &Sanitizer{patterns: defaultMerchantPatterns()}
}

var (
	// Masked card numbers: 1234XXXX5678, 4111********1111, XXXX-1234.
	cardMaskRe = regexp.MustCompile(`\b(?:\d{4,6})?[X\*]{4,12}[-\s]?\d{2,4}\b`)
	// Terminal/reference numbers trailing the name.
	refNumberRe = regexp.MustCompile(`\s+\d{4,}$`)
	// Trailing "<city words>:CC" or bare ":CC" country suffix.
	countrySuffixRe = regexp.MustCompile(`\s*:\s*[A-Z]{2}\s*$`)
	// Trailing standalone 2-letter country token ("... AE").
	trailingCountryRe = regexp.MustCompile(`\s+[A-Z]{2}$`)
	spaceRe           = regexp.MustCompile(`\s+`)

	// IBAN-like run: 2-letter country prefix followed by 21-23 digits.
	ibanRe = regexp.MustCompile(`\b[A-Za-z]{2}\d{21,23}\b`)

	transferRe = regexp.MustCompile(`(?i)\b(transfer|trf|trsf|iban|wire|swift|remittance|standing order|حوالة|تحويل)\b`)
	refundRe   = regexp.MustCompile(`(?i)\b(refund|reversal|reversed|rfnd|chargeback|cashback|استرداد)\b`)
)

// trailingCities are stripped from the end of merchant names. Statement
// descriptions append the terminal's city before the country code.
var trailingCities = []string{
	"abu dhabi", "dubai", "sharjah", "al ain", "ajman", "fujairah",
	"ras al khaimah", "umm al quwain", "auh", "dxb", "shj",
	"london", "riyadh", "doha", "manama", "muscat", "kuwait",
}

// Normalize cleans a raw description and classifies the transaction kind.
// The amount sign participates in classification: reimbursements and income
// are inflows, spend is an outflow.
func (s *Sanitizer) Normalize(description string, amount decimal.Decimal) MerchantInfo {
	info := MerchantInfo{
		OriginalName: description,
		Kind:         classifyKind(description, amount),
	}

	cleaned := cleanMerchantName(description)
	info.NormalizedName = cleaned

	upper := strings.ToUpper(cleaned)
	for _, p := range s.patterns {
		if p.Pattern.MatchString(upper) {
			info.NormalizedName = p.Name
			info.Category = p.Category
			return info
		}
	}

	info.NormalizedName = titleCase(cleaned)
	return info
}

// AddPattern registers a custom merchant pattern, tried after the defaults.
func (s *Sanitizer) AddPattern(pattern, name, category string) error {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return err
	}
	s.patterns = append(s.patterns, MerchantPattern{Pattern: re, Name: name, Category: category})
	return nil
}

// classifyKind decides the transaction kind from description and sign.
func classifyKind(description string, amount decimal.Decimal) statement.Kind {
	if ibanRe.MatchString(description) || transferRe.MatchString(description) {
		return statement.KindTransfer
	}
	if amount.IsPositive() {
		if refundRe.MatchString(description) {
			return statement.KindReimbursement
		}
		return statement.KindIncome
	}
	if amount.IsNegative() {
		return statement.KindSpend
	}
	return statement.KindUnknown
}

// cleanMerchantName removes card masks, reference numbers and trailing
// city/country noise.
func cleanMerchantName(raw string) string {
	result := strings.TrimSpace(raw)

	prefixes := []string{
		"POS ", "POS-", "PURCHASE ", "PAYMENT ", "CARD ",
		"VISA ", "MASTERCARD ", "ATM ", "ECOM ", "RETAIL ",
	}
	upper := strings.ToUpper(result)
	for _, prefix := range prefixes {
		if strings.HasPrefix(upper, prefix) {
			result = result[len(prefix):]
			break
		}
	}

	result = cardMaskRe.ReplaceAllString(result, "")
	result = countrySuffixRe.ReplaceAllString(result, "")
	result = trailingCountryRe.ReplaceAllString(result, "")
	result = refNumberRe.ReplaceAllString(result, "")

	// Strip trailing city names, longest first so "ras al khaimah" wins
	// over a hypothetical shorter suffix.
	lower := strings.ToLower(result)
	for changed := true; changed; {
		changed = false
		for _, city := range trailingCities {
			if strings.HasSuffix(lower, city) {
				result = strings.TrimSpace(result[:len(result)-len(city)])
				lower = strings.ToLower(result)
				changed = true
			}
		}
	}

	result = spaceRe.ReplaceAllString(result, " ")
	return strings.Trim(result, " -:,.")
}

// titleCase keeps all-caps acronyms of up to three letters and title-cases the
// rest.
func titleCase(s string) string {
	words := strings.Fields(s)
	for i, word := range words {
		if len(word) <= 3 && word == strings.ToUpper(word) {
			continue
		}
		words[i] = strings.ToUpper(word[:1]) + strings.ToLower(word[1:])
	}
	return strings.Join(words, " ")
}

// defaultMerchantPatterns covers merchants common on UAE card statements.
func defaultMerchantPatterns() []MerchantPattern {
	return []MerchantPattern{
		// Transport & delivery
		{regexp.MustCompile(`CAREEM\s*QUIK`), "CAREEM QUIK", "Groceries"},
		{regexp.MustCompile(`\bCAREEM\b`), "Careem", "Transport"},
		{regexp.MustCompile(`\bUBER\b`), "Uber", "Transport"},
		{regexp.MustCompile(`TALABAT`), "Talabat", "Food & Drink"},
		{regexp.MustCompile(`DELIVEROO`), "Deliveroo", "Food & Drink"},
		{regexp.MustCompile(`ZOMATO`), "Zomato", "Food & Drink"},

		// Groceries & retail
		{regexp.MustCompile(`CARREFOUR`), "Carrefour", "Groceries"},
		{regexp.MustCompile(`LULU\s*(HYPER|CENTER)?`), "Lulu Hypermarket", "Groceries"},
		{regexp.MustCompile(`SPINNEYS`), "Spinneys", "Groceries"},
		{regexp.MustCompile(`WAITROSE`), "Waitrose", "Groceries"},
		{regexp.MustCompile(`NOON(\.COM)?`), "Noon", "Shopping"},
		{regexp.MustCompile(`AMAZON`), "Amazon", "Shopping"},
		{regexp.MustCompile(`\bIKEA\b`), "IKEA", "Shopping"},
		{regexp.MustCompile(`SHARAF\s*DG`), "Sharaf DG", "Shopping"},

		// Fuel & utilities
		{regexp.MustCompile(`ADNOC`), "ADNOC", "Fuel"},
		{regexp.MustCompile(`\bENOC\b`), "ENOC", "Fuel"},
		{regexp.MustCompile(`\bEPPCO\b`), "EPPCO", "Fuel"},
		{regexp.MustCompile(`\bDEWA\b`), "DEWA", "Utilities"},
		{regexp.MustCompile(`\bADDC\b`), "ADDC", "Utilities"},
		{regexp.MustCompile(`\bSEWA\b`), "SEWA", "Utilities"},
		{regexp.MustCompile(`ETISALAT`), "Etisalat", "Utilities"},
		{regexp.MustCompile(`\bDU\b\s|\bDU\b$`), "du", "Utilities"},
		{regexp.MustCompile(`SALIK`), "Salik", "Transport"},

		// Subscriptions & entertainment
		{regexp.MustCompile(`NETFLIX`), "Netflix", "Subscriptions"},
		{regexp.MustCompile(`SPOTIFY`), "Spotify", "Subscriptions"},
		{regexp.MustCompile(`APPLE\.COM|APPLE\s*SERVICES`), "Apple", "Subscriptions"},
		{regexp.MustCompile(`GOOGLE\s*(PLAY|YOUTUBE|STORAGE)`), "Google", "Subscriptions"},
		{regexp.MustCompile(`ANGHAMI`), "Anghami", "Subscriptions"},
		{regexp.MustCompile(`\bOSN\b`), "OSN", "Subscriptions"},
		{regexp.MustCompile(`SHAHID`), "Shahid", "Subscriptions"},

		// Food & coffee
		{regexp.MustCompile(`STARBUCKS`), "Starbucks", "Food & Drink"},
		{regexp.MustCompile(`MC\s*DONALDS|MCDONALD`), "McDonald's", "Food & Drink"},
		{regexp.MustCompile(`\bKFC\b`), "KFC", "Food & Drink"},
		{regexp.MustCompile(`TIM\s*HORTONS`), "Tim Hortons", "Food & Drink"},

		// Insurance & rent-like
		{regexp.MustCompile(`\bAXA\b|GIG\s*GULF`), "GIG Gulf", "Insurance"},
		{regexp.MustCompile(`DAMAN`), "Daman", "Insurance"},
		{regexp.MustCompile(`EJARI|TENANCY`), "Rent", "Rent"},

		// Finance
		{regexp.MustCompile(`PAYPAL`), "PayPal", "Finance"},
		{regexp.MustCompile(`\bFAB\b|FIRST\s*ABU\s*DHABI`), "FAB", "Finance"},
		{regexp.MustCompile(`EMIRATES\s*NBD`), "Emirates NBD", "Finance"},
		{regexp.MustCompile(`\bADCB\b`), "ADCB", "Finance"},
	}
}
