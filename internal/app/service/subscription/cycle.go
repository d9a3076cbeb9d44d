package subscription

import (
	"time"

	"github.com/santrihub/sppbilling/pkg/types"
)

// NextFrom returns the billing date one cycle after from.
func NextFrom(from time.Time, cycle types.BillingCycle) time.Time {
	return from.AddDate(0, cycle.Months(), 0)
}

// AdvanceToAfter walks next forward by whole cycles until it lands strictly
// after ref. Used on resume so cycles missed during a pause are never billed
// retroactively. next is returned unchanged when already past ref.
func AdvanceToAfter(next, ref time.Time, cycle types.BillingCycle) time.Time {
	for !next.After(ref) {
		next = NextFrom(next, cycle)
	}
	return next
}
