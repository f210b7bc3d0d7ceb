// Package recurring finds repeating merchant/amount/interval patterns in an
// accumulated transaction set. Detection is a full re-scan over an immutable
// snapshot; it never mutates stored transactions, so concurrent runs are safe
// and recomputation is the correctness baseline.
package recurring

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Frequency classifies the detected cadence.
type Frequency string

const (
	FrequencyWeekly    Frequency = "weekly"
	FrequencyMonthly   Frequency = "monthly"
	FrequencyQuarterly Frequency = "quarterly"
	FrequencyYearly    Frequency = "yearly"
)

// Confidence grades how much a detected group should be trusted.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Transaction is the detector's read-only view of a stored transaction.
type Transaction struct {
	ID       uuid.UUID
	Merchant string
	Category string
	Amount   decimal.Decimal
	Date     time.Time
	IsSplit  bool
}

// Group is one detected recurring pattern.
type Group struct {
	MerchantKey    string
	MerchantName   string
	Category       string
	AverageAmount  decimal.Decimal
	Frequency      Frequency
	LastOccurrence time.Time
	NextExpected   time.Time
	MemberIDs      []uuid.UUID
	Confidence     Confidence
	IsActive       bool
}

// Anomaly flags a transaction that matches a recurring group but deviates
// from its average amount.
type Anomaly struct {
	TransactionID uuid.UUID
	MerchantKey   string
	Amount        decimal.Decimal
	GroupAverage  decimal.Decimal
	DeviationPct  float64
}

// Interval windows, in days. Windows overlap deliberately: billing dates
// drift around month boundaries.
var frequencyWindows = []struct {
	freq     Frequency
	min, max float64
}{
	{FrequencyWeekly, 5, 12},
	{FrequencyMonthly, 20, 45},
	{FrequencyQuarterly, 75, 110},
	{FrequencyYearly, 330, 400},
}

// subscriptionCategories get a relaxed monthly window: these merchants bill
// on contract, so an in-window interval is strong evidence even when amounts
// wobble.
var subscriptionCategories = map[string]bool{
	"subscriptions": true,
	"utilities":     true,
	"rent":          true,
	"insurance":     true,
}

const (
	amountConsistencyMax = 0.30
	relaxedConsistency   = 0.50
	relaxedMonthlyMin    = 20.0
	relaxedMonthlyMax    = 50.0
	fallbackAmountRatio  = 0.5
	anomalyDeviation     = 0.20
)

// Detector finds recurring groups. Now is injectable for tests; the zero
// value uses time.Now.
type Detector struct {
	Now func() time.Time
}

// NewDetector returns a detector using wall-clock time.
func NewDetector() *Detector {
	return &Detector{Now: time.Now}
}

// Detect scans the snapshot and returns every recurring group found. Only
// negative-amount, non-split transactions are eligible; groups with fewer
// than two observations are skipped.
func (d *Detector) Detect(txs []Transaction) []Group {
	byMerchant := make(map[string][]Transaction)
	var order []string
	for _, tx := range txs {
		if !tx.Amount.IsNegative() || tx.IsSplit {
			continue
		}
		key := strings.ToLower(strings.TrimSpace(tx.Merchant))
		if key == "" {
			continue
		}
		if _, ok := byMerchant[key]; !ok {
			order = append(order, key)
		}
		byMerchant[key] = append(byMerchant[key], tx)
	}

	var groups []Group
	for _, key := range order {
		members := byMerchant[key]
		if len(members) < 2 {
			continue
		}
		if g, ok := d.analyzeGroup(key, members); ok {
			groups = append(groups, g)
		}
	}
	return groups
}

// analyzeGroup decides whether one merchant's transactions recur.
func (d *Detector) analyzeGroup(key string, members []Transaction) (Group, bool) {
	sort.Slice(members, func(i, j int) bool { return members[i].Date.Before(members[j].Date) })

	intervals := make([]float64, 0, len(members)-1)
	for i := 1; i < len(members); i++ {
		intervals = append(intervals, members[i].Date.Sub(members[i-1].Date).Hours()/24)
	}
	meanInterval := mean(intervals)

	avgAmt, stddev, minAmt, maxAmt := amountStats(members)
	consistency := 1.0
	if avgAmt > 0 {
		consistency = stddev / avgAmt
	}
	amountConsistent := consistency < amountConsistencyMax

	category := dominantCategory(members)

	var (
		freq       Frequency
		confidence Confidence
		recurring  bool
	)

	// Primary rule: interval inside a window and consistent amounts.
	if amountConsistent {
		for _, w := range frequencyWindows {
			if meanInterval < w.min || meanInterval > w.max {
				continue
			}
			if w.freq == FrequencyWeekly && len(intervals) < 2 {
				continue
			}
			freq = w.freq
			confidence = ConfidenceHigh
			recurring = true
			break
		}
	}

	// Relaxation: subscription-like categories recur on a wider monthly
	// window even when amount consistency is borderline.
	if !recurring && subscriptionCategories[strings.ToLower(category)] &&
		meanInterval >= relaxedMonthlyMin && meanInterval <= relaxedMonthlyMax &&
		consistency < relaxedConsistency {
		freq = FrequencyMonthly
		confidence = ConfidenceMedium
		recurring = true
	}

	// Loose fallback: amounts within 50% of each other across 2+
	// observations. Noisy but genuinely recurring merchants land here; the
	// Low confidence tells callers how much to trust it.
	if !recurring && maxAmt > 0 && minAmt/maxAmt > fallbackAmountRatio {
		freq = guessFrequency(meanInterval)
		confidence = ConfidenceLow
		recurring = true
	}

	if !recurring {
		return Group{}, false
	}

	last := members[len(members)-1].Date
	next := advance(last, freq)

	ids := make([]uuid.UUID, len(members))
	for i, m := range members {
		ids[i] = m.ID
	}

	return Group{
		MerchantKey:    key,
		MerchantName:   members[len(members)-1].Merchant,
		Category:       category,
		AverageAmount:  decimal.NewFromFloat(avgAmt).Round(2),
		Frequency:      freq,
		LastOccurrence: last,
		NextExpected:   next,
		MemberIDs:      ids,
		Confidence:     confidence,
		IsActive:       d.isActive(last, freq),
	}, true
}

// FlagAnomalies returns transactions that match a detected group but deviate
// more than 20% from its average amount.
func (d *Detector) FlagAnomalies(groups []Group, txs []Transaction) []Anomaly {
	byKey := make(map[string]Group, len(groups))
	for _, g := range groups {
		byKey[g.MerchantKey] = g
	}

	var anomalies []Anomaly
	for _, tx := range txs {
		g, ok := byKey[strings.ToLower(strings.TrimSpace(tx.Merchant))]
		if !ok || !g.AverageAmount.IsPositive() {
			continue
		}
		avg, _ := g.AverageAmount.Float64()
		amt, _ := tx.Amount.Abs().Float64()
		dev := math.Abs(amt-avg) / avg
		if dev > anomalyDeviation {
			anomalies = append(anomalies, Anomaly{
				TransactionID: tx.ID,
				MerchantKey:   g.MerchantKey,
				Amount:        tx.Amount,
				GroupAverage:  g.AverageAmount,
				DeviationPct:  dev,
			})
		}
	}
	return anomalies
}

// isActive: a group is still live when the last occurrence is within two
// periods of now.
func (d *Detector) isActive(last time.Time, freq Frequency) bool {
	now := time.Now
	if d.Now != nil {
		now = d.Now
	}
	gap := now().Sub(last).Hours() / 24
	return gap <= 2*periodDays(freq)
}

func advance(t time.Time, freq Frequency) time.Time {
	switch freq {
	case FrequencyWeekly:
		return t.AddDate(0, 0, 7)
	case FrequencyMonthly:
		return t.AddDate(0, 1, 0)
	case FrequencyQuarterly:
		return t.AddDate(0, 3, 0)
	case FrequencyYearly:
		return t.AddDate(1, 0, 0)
	}
	return t.AddDate(0, 1, 0)
}

func periodDays(freq Frequency) float64 {
	switch freq {
	case FrequencyWeekly:
		return 7
	case FrequencyMonthly:
		return 30
	case FrequencyQuarterly:
		return 91
	case FrequencyYearly:
		return 365
	}
	return 30
}

// guessFrequency buckets a raw interval for the low-confidence fallback.
func guessFrequency(meanInterval float64) Frequency {
	switch {
	case meanInterval <= 14:
		return FrequencyWeekly
	case meanInterval <= 60:
		return FrequencyMonthly
	case meanInterval <= 200:
		return FrequencyQuarterly
	default:
		return FrequencyYearly
	}
}

func amountStats(members []Transaction) (meanV, stddev, minV, maxV float64) {
	minV = math.MaxFloat64
	var sum float64
	vals := make([]float64, len(members))
	for i, m := range members {
		v, _ := m.Amount.Abs().Float64()
		vals[i] = v
		sum += v
		if v < minV {
			minV = v
		}
		if v > maxV {
			maxV = v
		}
	}
	meanV = sum / float64(len(vals))

	var varSum float64
	for _, v := range vals {
		varSum += (v - meanV) * (v - meanV)
	}
	stddev = math.Sqrt(varSum / float64(len(vals)))
	return meanV, stddev, minV, maxV
}

func mean(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	var sum float64
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

// dominantCategory picks the most frequent non-empty category in the group.
func dominantCategory(members []Transaction) string {
	counts := make(map[string]int)
	best := ""
	for _, m := range members {
		if m.Category == "" {
			continue
		}
		counts[m.Category]++
		if counts[m.Category] > counts[best] {
			best = m.Category
		}
	}
	return best
}
