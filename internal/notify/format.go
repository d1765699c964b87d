package notify

import (
	"time"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Formatter renders the notification texts the engine emits. Amounts are
// stored in minor units and rendered with the platform currency.
type Formatter struct {
	printer *message.Printer
	unit    currency.Unit
}

// NewFormatter builds a formatter for the given BCP 47 locale and ISO 4217
// currency code. Unknown values fall back to en / USD.
func NewFormatter(locale, currencyCode string) *Formatter {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.English
	}
	unit, err := currency.ParseISO(currencyCode)
	if err != nil {
		unit = currency.USD
	}
	return &Formatter{printer: message.NewPrinter(tag), unit: unit}
}

// Amount renders a minor-unit amount with its currency symbol.
func (f *Formatter) Amount(minor int64) string {
	return f.printer.Sprintf("%v", currency.Symbol(f.unit.Amount(float64(minor)/100)))
}

func (f *Formatter) ProofRequested(campaignTitle string, stage int, target int64, deadline time.Time) string {
	return f.printer.Sprintf("Stage %d of %q is fully funded (%s). Submit your proof of fund usage by %s.",
		stage, campaignTitle, f.Amount(target), deadline.Format("Jan 2, 2006 15:04 MST"))
}

func (f *Formatter) ReviewRequested(campaignTitle string, stage int) string {
	return f.printer.Sprintf("Proof for stage %d of %q was submitted and is awaiting your review.",
		stage, campaignTitle)
}

func (f *Formatter) ProofApproved(campaignTitle string, stage int) string {
	return f.printer.Sprintf("Proof for stage %d of %q was approved. The payout is being settled.",
		stage, campaignTitle)
}

func (f *Formatter) ProofRejected(campaignTitle string, stage int, remarks string, deadline time.Time) string {
	return f.printer.Sprintf("Proof for stage %d of %q was rejected: %s. Resubmit by %s.",
		stage, campaignTitle, remarks, deadline.Format("Jan 2, 2006 15:04 MST"))
}

func (f *Formatter) DeadlineMissed(campaignTitle string, stage int, deadline time.Time) string {
	return f.printer.Sprintf("The proof deadline for stage %d of %q passed on %s. Your account has been suspended.",
		stage, campaignTitle, deadline.Format("Jan 2, 2006 15:04 MST"))
}

// BlockReason is the human-readable reason stored on a blocked account. It
// cites the 1-based stage number and the deadline that was missed.
func (f *Formatter) BlockReason(campaignTitle string, stage int, deadline time.Time) string {
	return f.printer.Sprintf("proof for milestone %d of %q not submitted before %s",
		stage, campaignTitle, deadline.Format(time.RFC3339))
}
