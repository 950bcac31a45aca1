// Package billing holds the money arithmetic shared by time entries and
// invoices. Amounts are float64 dollars rounded to cents at every step.
package billing

import (
	"fmt"
	"math"
	"time"
)

// Round2 rounds to cents, half away from zero.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// TimeEntryAmount is hours × rate, rounded to cents.
func TimeEntryAmount(hours, rate float64) float64 {
	return Round2(hours * rate)
}

// InvoiceTotals returns tax = subtotal × rate and total = subtotal + tax.
func InvoiceTotals(subtotal, taxRate float64) (tax, total float64) {
	subtotal = Round2(subtotal)
	tax = Round2(subtotal * taxRate)
	total = Round2(subtotal + tax)
	return tax, total
}

// ToCents converts a dollar amount to integer cents for the payment processor.
func ToCents(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

func FromCents(cents int64) float64 {
	return Round2(float64(cents) / 100)
}

// InvoiceNumber formats the seq-th invoice of the year.
func InvoiceNumber(issued time.Time, seq int) string {
	return fmt.Sprintf("INV-%d-%04d", issued.Year(), seq)
}

// AgingBucket names the receivables bucket for an invoice due on due.
func AgingBucket(due, now time.Time) string {
	days := int(now.Sub(due).Hours() / 24)
	switch {
	case days <= 0:
		return "current"
	case days <= 30:
		return "1-30"
	case days <= 60:
		return "31-60"
	case days <= 90:
		return "61-90"
	default:
		return "90+"
	}
}

var AgingBuckets = []string{"current", "1-30", "31-60", "61-90", "90+"}
