package subscription

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/santrihub/sppbilling/pkg/types"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestNextFrom(t *testing.T) {
	require.Equal(t, date(2026, 2, 15), NextFrom(date(2026, 1, 15), types.BillingCycleMonthly))
	require.Equal(t, date(2026, 4, 15), NextFrom(date(2026, 1, 15), types.BillingCycleQuarterly))
	require.Equal(t, date(2027, 1, 15), NextFrom(date(2026, 1, 15), types.BillingCycleYearly))
}

func TestNextFrom_MonthEndRollsOver(t *testing.T) {
	// AddDate normalizes Jan 31 + 1 month to Mar 2/3
	next := NextFrom(date(2026, 1, 31), types.BillingCycleMonthly)
	require.Equal(t, time.March, next.Month())
}

func TestAdvanceToAfter(t *testing.T) {
	next := date(2026, 1, 1)
	ref := date(2026, 4, 10)
	got := AdvanceToAfter(next, ref, types.BillingCycleMonthly)
	require.Equal(t, date(2026, 5, 1), got)
	require.True(t, got.After(ref))
}

func TestAdvanceToAfter_AlreadyAhead(t *testing.T) {
	next := date(2026, 6, 1)
	got := AdvanceToAfter(next, date(2026, 4, 10), types.BillingCycleMonthly)
	require.Equal(t, next, got)
}
