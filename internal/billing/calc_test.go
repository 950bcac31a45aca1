package billing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTimeEntryAmount(t *testing.T) {
	assert.Equal(t, 625.00, TimeEntryAmount(2.5, 250.00))
	assert.Equal(t, 225.00, TimeEntryAmount(1.25, 180))
	assert.Equal(t, 0.0, TimeEntryAmount(0, 300))
}

func TestInvoiceTotals(t *testing.T) {
	tax, total := InvoiceTotals(1625.00, 0.08)
	assert.Equal(t, 130.00, tax)
	assert.Equal(t, 1755.00, total)

	tax, total = InvoiceTotals(1000, 0)
	assert.Equal(t, 0.0, tax)
	assert.Equal(t, 1000.0, total)

	// total is always subtotal + tax after rounding
	tax, total = InvoiceTotals(333.33, 0.0725)
	assert.Equal(t, 24.17, tax)
	assert.Equal(t, Round2(333.33+tax), total)
}

func TestCents(t *testing.T) {
	assert.Equal(t, int64(175500), ToCents(1755.00))
	assert.Equal(t, 19.99, FromCents(1999))
}

func TestInvoiceNumber(t *testing.T) {
	assert.Equal(t, "INV-2026-0007", InvoiceNumber(time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC), 7))
}

func TestAgingBucket(t *testing.T) {
	now := time.Date(2026, 6, 30, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "current", AgingBucket(now.AddDate(0, 0, 5), now))
	assert.Equal(t, "1-30", AgingBucket(now.AddDate(0, 0, -10), now))
	assert.Equal(t, "31-60", AgingBucket(now.AddDate(0, 0, -45), now))
	assert.Equal(t, "61-90", AgingBucket(now.AddDate(0, 0, -75), now))
	assert.Equal(t, "90+", AgingBucket(now.AddDate(0, 0, -120), now))
}
