package config

import (
	"os"
	"strings"

	"github.com/shopspring/decimal"
)

// LowBalanceThreshold is the balance at or below which an application result
// carries a low-balance warning. The historical behavior differed by call
// site (admin path warned at 100, driver path at 0), so it is configurable:
// env default here, optional per-business override on the Business row.
//
// Set via env:
// - LOW_BALANCE_THRESHOLD=100.00
func LowBalanceThreshold() decimal.Decimal {
	v := strings.TrimSpace(os.Getenv("LOW_BALANCE_THRESHOLD"))
	if v == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// CascadeCancelPendingPayments controls whether deleting a ledger entry also
// cancels the pending payments its overflow created. The legacy system left
// them orphaned; cancelling is the default here.
//
// Set via env:
// - KEEP_ORPHAN_PENDING_PAYMENTS=true  (restores legacy behavior)
func CascadeCancelPendingPayments() bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("KEEP_ORPHAN_PENDING_PAYMENTS")))
	return !(v == "1" || v == "true" || v == "yes" || v == "y")
}
