package matcher

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"payment-reconciliation-service/internal/models"
)

func TestDetectDuplicates(t *testing.T) {
	first := testStatement("BANK_A")
	second := testStatement("BANK_B")
	distinct := testStatement("BANK_C")
	distinct.Amount = decimal.NewFromFloat(42.00)
	pool := []*models.BankStatement{first, second, distinct}

	report := DetectDuplicates(pool)

	if len(report.Pairs) != 1 {
		t.Fatalf("expected 1 duplicate pair, got %d", len(report.Pairs))
	}
	pair := report.Pairs[0]
	if pair.Baseline != first {
		t.Error("expected the first statement observed to be the baseline")
	}
	if pair.Duplicate != second {
		t.Error("expected the second statement to be the duplicate")
	}
	if !report.Flagged("BANK_A") || !report.Flagged("BANK_B") {
		t.Error("expected both members of the pair to be flagged")
	}
	if report.Flagged("BANK_C") {
		t.Error("distinct statement must not be flagged")
	}
	if report.FlaggedCount() != 2 {
		t.Errorf("expected 2 flagged statements, got %d", report.FlaggedCount())
	}
}

func TestDetectDuplicatesThreeWay(t *testing.T) {
	pool := []*models.BankStatement{
		testStatement("BANK_A"),
		testStatement("BANK_B"),
		testStatement("BANK_C"),
	}

	report := DetectDuplicates(pool)

	if len(report.Pairs) != 2 {
		t.Fatalf("expected 2 pairs for a group of 3, got %d", len(report.Pairs))
	}
	for _, pair := range report.Pairs {
		if pair.Baseline.BankReferenceID != "BANK_A" {
			t.Errorf("expected BANK_A as baseline of every pair, got %s", pair.Baseline.BankReferenceID)
		}
	}
	if report.FlaggedCount() != 3 {
		t.Errorf("expected 3 flagged statements, got %d", report.FlaggedCount())
	}
}

func TestDetectDuplicatesDifferentDay(t *testing.T) {
	first := testStatement("BANK_A")
	second := testStatement("BANK_B")
	second.SettlementDate = first.SettlementDate.AddDate(0, 0, 1)
	pool := []*models.BankStatement{first, second}

	report := DetectDuplicates(pool)
	if len(report.Pairs) != 0 {
		t.Errorf("statements on different days must not be duplicates, got %d pairs", len(report.Pairs))
	}
}

func TestDetectDuplicatesSameDayDifferentTime(t *testing.T) {
	first := testStatement("BANK_A")
	first.SettlementDate = time.Date(2024, 1, 15, 8, 0, 0, 0, time.UTC)
	second := testStatement("BANK_B")
	second.SettlementDate = time.Date(2024, 1, 15, 19, 45, 0, 0, time.UTC)
	pool := []*models.BankStatement{first, second}

	report := DetectDuplicates(pool)
	if len(report.Pairs) != 1 {
		t.Errorf("same calendar day must group regardless of time, got %d pairs", len(report.Pairs))
	}
}

func TestDetectDuplicatesMissingDateBucket(t *testing.T) {
	first := testStatement("BANK_A")
	first.SettlementDate = time.Time{}
	second := testStatement("BANK_B")
	second.SettlementDate = time.Time{}
	dated := testStatement("BANK_C")
	pool := []*models.BankStatement{first, second, dated}

	report := DetectDuplicates(pool)

	if len(report.Pairs) != 1 {
		t.Fatalf("expected the two undated statements to pair, got %d pairs", len(report.Pairs))
	}
	if report.Flagged("BANK_C") {
		t.Error("dated statement must not share the no-date bucket")
	}
}

func TestDetectDuplicatesMissingMerchantBucket(t *testing.T) {
	first := testStatement("BANK_A")
	first.MerchantAccountID = ""
	second := testStatement("BANK_B")
	second.MerchantAccountID = ""
	pool := []*models.BankStatement{first, second}

	report := DetectDuplicates(pool)
	if len(report.Pairs) != 1 {
		t.Errorf("expected statements without a merchant to share a bucket, got %d pairs", len(report.Pairs))
	}
}

func TestDetectDuplicatesAmountKeyNormalizesScale(t *testing.T) {
	first := testStatement("BANK_A")
	first.Amount = decimal.RequireFromString("100.50")
	second := testStatement("BANK_B")
	second.Amount = decimal.RequireFromString("100.500")
	pool := []*models.BankStatement{first, second}

	report := DetectDuplicates(pool)
	if len(report.Pairs) != 1 {
		t.Errorf("expected 100.50 and 100.500 to share a key, got %d pairs", len(report.Pairs))
	}
}

func TestDetectDuplicatesEmptyPool(t *testing.T) {
	report := DetectDuplicates(nil)
	if len(report.Pairs) != 0 || report.FlaggedCount() != 0 {
		t.Error("expected an empty report for an empty pool")
	}
}
