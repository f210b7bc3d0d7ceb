package service

import (
	"context"
	"errors"
	"image"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/statement-pipeline/internal/domain/statement"
	"github.com/FACorreiaa/statement-pipeline/internal/extractor/ocr"
	"github.com/FACorreiaa/statement-pipeline/pkg/money"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeRecognizer returns one canned page per call.
type fakeRecognizer struct {
	pages []string
	langs []string
	calls int
}

func (f *fakeRecognizer) Recognize(_ context.Context, _ *image.Gray, langs []string) (ocr.Page, error) {
	f.langs = langs
	text := ""
	if f.calls < len(f.pages) {
		text = f.pages[f.calls]
	}
	f.calls++
	return ocr.Page{Text: text, Confidence: 0.92}, nil
}

func TestExtractText(t *testing.T) {
	svc := New(Config{}, nil, testLogger(), nil)

	t.Run("running balance statement end to end", func(t *testing.T) {
		gen := money.NewTestDataGenerator(42)
		lines := gen.BalanceTableLines(20, decimal.NewFromInt(25000))
		docID := uuid.New()

		ex, err := svc.ExtractText(context.Background(), docID, []string{strings.Join(lines, "\n")}, false)

		require.NoError(t, err)
		assert.Equal(t, statement.TypeTableWithBalance, ex.StatementType)
		assert.Equal(t, 1, ex.Bounds.Start)
		assert.False(t, ex.UsedOCR)
		assert.Equal(t, 1, ex.Pages)
		require.NotEmpty(t, ex.Transactions)
		assert.GreaterOrEqual(t, len(ex.Transactions), 15)

		for _, tx := range ex.Transactions {
			assert.Equal(t, docID, tx.DocumentID)
			assert.NotEmpty(t, tx.Merchant)
			assert.True(t, tx.Amount.IsNegative())
			assert.NotNil(t, tx.Balance)
			assert.Equal(t, "AED", tx.Currency)
		}
	})

	t.Run("dual date statement", func(t *testing.T) {
		pages := []string{strings.Join([]string{
			"Transaction Date  Posting Date  Description  Amount",
			"15/01/2024  17/01/2024  NETFLIX.COM  55.99",
			"18/01/2024  19/01/2024  CAREEM QUIK DUBAI  32.50",
			"20/01/2024  21/01/2024  REFUND NOON ORDER  120.00",
		}, "\n")}

		ex, err := svc.ExtractText(context.Background(), uuid.New(), pages, false)

		require.NoError(t, err)
		assert.Equal(t, statement.TypeDualDateSingleAmount, ex.StatementType)
		require.Len(t, ex.Transactions, 3)
		assert.Equal(t, "Netflix", ex.Transactions[0].Merchant)
		assert.True(t, ex.Transactions[0].Amount.IsNegative())
		require.NotNil(t, ex.Transactions[0].PostingDate)
		assert.Equal(t, statement.KindReimbursement, ex.Transactions[2].Kind)
	})

	t.Run("ocr misread decimals are repaired", func(t *testing.T) {
		pages := []string{strings.Join([]string{
			"Date  Description  Debit  Credit  Balance",
			"15/01/2024  CAREEM QUIK DUBAI  32;50  8,457;90",
			"16/01/2024  LULU HYPERMARKET  245:30  8,212:60",
			"17/01/2024  DEWA PAYMENT  420;00  7,792;60",
			"18/01/2024  TALABAT ORDER  89;75  7,702;85",
			"19/01/2024  SALIK TOPUP RTA  50;00  7,652;85",
			"20/01/2024  SPINNEYS DUBAI  312;40  7,340;45",
			"21/01/2024  ETISALAT RECHARGE  150;00  7,190;45",
			"22/01/2024  ADNOC FUEL STATION  180;25  7,010;20",
			"23/01/2024  CARREFOUR MALL  264;80  6,745;40",
			"24/01/2024  NOON MINUTES  74;90  6,670;50",
		}, "\n")}

		ex, err := svc.ExtractText(context.Background(), uuid.New(), pages, true)

		require.NoError(t, err)
		require.Len(t, ex.Transactions, 10)
		assert.Equal(t, "-32.5", ex.Transactions[0].Amount.String())
		require.NotNil(t, ex.Transactions[0].Balance)
		assert.Equal(t, "8457.9", ex.Transactions[0].Balance.String())
		assert.True(t, ex.UsedOCR)
	})

	t.Run("row failures are collected, not fatal", func(t *testing.T) {
		pages := []string{strings.Join([]string{
			"Date  Description  Debit  Credit  Balance",
			"15/01/2024  CAREEM QUIK DUBAI  32.50  8,457.90",
			"16/01/2024  AB  10.00  8,447.90",
		}, "\n")}

		ex, err := svc.ExtractText(context.Background(), uuid.New(), pages, false)

		require.NoError(t, err)
		assert.Len(t, ex.Transactions, 1)
		require.Len(t, ex.Failures, 1)
		assert.Equal(t, 2, ex.Failures[0].Row.LineStart)
	})

	t.Run("canceled context aborts with a document error", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		docID := uuid.New()

		_, err := svc.ExtractText(ctx, docID, []string{"x"}, false)

		require.Error(t, err)
		var docErr *DocumentError
		require.ErrorAs(t, err, &docErr)
		assert.Equal(t, docID, docErr.DocumentID)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestProcessImages(t *testing.T) {
	t.Run("recognized pages flow into extraction", func(t *testing.T) {
		pageText := strings.Join([]string{
			"Date  Description  Debit  Credit  Balance",
			"15/01/2024  CAREEM QUIK DUBAI  32.50  8,457.90",
			"16/01/2024  LULU HYPERMARKET  245.30  8,212.60",
		}, "\n")
		rec := &fakeRecognizer{pages: []string{pageText}}
		svc := New(Config{Languages: []string{"ara", "eng"}}, rec, testLogger(), nil)

		img := image.NewRGBA(image.Rect(0, 0, 40, 40))
		ex, err := svc.ProcessImages(context.Background(), uuid.New(), []image.Image{img})

		require.NoError(t, err)
		assert.Equal(t, 1, rec.calls)
		assert.Equal(t, []string{"ara", "eng"}, rec.langs)
		assert.True(t, ex.UsedOCR)
		assert.Len(t, ex.Transactions, 2)
	})

	t.Run("nil recognizer is a document error", func(t *testing.T) {
		svc := New(Config{}, nil, testLogger(), nil)

		_, err := svc.ProcessImages(context.Background(), uuid.New(), nil)

		var docErr *DocumentError
		require.ErrorAs(t, err, &docErr)
		assert.Equal(t, "ocr", docErr.Stage)
	})
}

func TestProcessPDF_MissingFile(t *testing.T) {
	svc := New(Config{}, nil, testLogger(), nil)

	_, err := svc.ProcessPDF(context.Background(), uuid.New(), "does-not-exist.pdf")

	var docErr *DocumentError
	require.ErrorAs(t, err, &docErr)
	assert.Equal(t, "pdftext", docErr.Stage)
	assert.False(t, errors.Is(err, ErrScannedDocument))
}

func TestShouldSkipOCR(t *testing.T) {
	svc := New(Config{}, nil, testLogger(), nil)
	gen := money.NewTestDataGenerator(7)
	lines := gen.BalanceTableLines(15, decimal.NewFromInt(40000))

	ex, err := svc.ExtractText(context.Background(), uuid.New(), []string{strings.Join(lines, "\n")}, false)
	require.NoError(t, err)

	ok, reasons := svc.ShouldSkipOCR(ex)
	assert.True(t, ok)
	assert.Empty(t, reasons)
}

func TestRepairOCRNoise(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"32;50", "32.50"},
		{"32; 50", "32.50"},
		{"245:30", "245.30"},
		{"8,457;90", "8,457.90"},
		{"amount 420; end", "amount 420 end"},
		{"trailing 99:", "trailing 99"},
		{"time 12:345 untouched", "time 12:345 untouched"},
		{"no digits; here", "no digits; here"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, repairOCRNoise(tt.input), "input %q", tt.input)
	}
}
