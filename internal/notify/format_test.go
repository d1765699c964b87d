package notify

import (
	"strings"
	"testing"
	"time"
)

func TestBlockReasonCitesStageAndDeadline(t *testing.T) {
	f := NewFormatter("en", "USD")
	deadline := time.Date(2026, 3, 6, 12, 0, 0, 0, time.UTC)

	reason := f.BlockReason("Clean Water", 2, deadline)
	if !strings.Contains(reason, "milestone 2") {
		t.Errorf("reason %q does not cite the stage", reason)
	}
	if !strings.Contains(reason, "2026-03-06T12:00:00Z") {
		t.Errorf("reason %q does not cite the deadline", reason)
	}
	if !strings.Contains(reason, `"Clean Water"`) {
		t.Errorf("reason %q does not cite the campaign", reason)
	}
}

func TestAmountRendersMinorUnits(t *testing.T) {
	f := NewFormatter("en", "USD")
	got := f.Amount(1234_56)
	if !strings.Contains(got, "1,234.56") {
		t.Errorf("amount = %q, want 1,234.56 in it", got)
	}
}

func TestFormatterFallsBackOnUnknownLocale(t *testing.T) {
	f := NewFormatter("zz-ZZ-bogus", "NOPE")
	if msg := f.ReviewRequested("Clean Water", 1); !strings.Contains(msg, "Clean Water") {
		t.Errorf("message = %q", msg)
	}
}

func TestProofRejectedCarriesRemarks(t *testing.T) {
	f := NewFormatter("en", "USD")
	deadline := time.Date(2026, 3, 11, 9, 30, 0, 0, time.UTC)
	msg := f.ProofRejected("Clean Water", 1, "missing invoices", deadline)
	if !strings.Contains(msg, "missing invoices") {
		t.Errorf("message %q does not carry remarks", msg)
	}
	if !strings.Contains(msg, "Mar 11, 2026") {
		t.Errorf("message %q does not carry the new deadline", msg)
	}
}
