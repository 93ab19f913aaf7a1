package leave

import (
	"context"

	"github.com/shopspring/decimal"
)

// =============================================================================
// BALANCE - Always recomputed from the approved request history
// =============================================================================

// DefaultMaxLeave is the annual shared balance for casual/vacation and
// half-day leave.
var DefaultMaxLeave = decimal.NewFromInt(14)

var balanceConsumingTypes = []Type{TypeCasual, TypeVacation, TypeFirstHalf, TypeSecondHalf}

// Balance returns the employee's remaining shared balance: the maximum
// minus the sum of leaveTaken over approved balance-consuming requests.
func Balance(ctx context.Context, store Store, employeeID string, max decimal.Decimal) (decimal.Decimal, error) {
	taken, err := sumTaken(ctx, store, employeeID, balanceConsumingTypes)
	if err != nil {
		return decimal.Zero, err
	}
	return max.Sub(taken), nil
}

// SickTotal is the lifetime count of approved sick leave days.
func SickTotal(ctx context.Context, store Store, employeeID string) (decimal.Decimal, error) {
	return sumTaken(ctx, store, employeeID, []Type{TypeSick})
}

// UnpaidTotal is the lifetime count of approved unpaid leave days.
func UnpaidTotal(ctx context.Context, store Store, employeeID string) (decimal.Decimal, error) {
	return sumTaken(ctx, store, employeeID, []Type{TypeUnpaid})
}

func sumTaken(ctx context.Context, store Store, employeeID string, types []Type) (decimal.Decimal, error) {
	requests, err := store.ApprovedRequests(ctx, employeeID, types)
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, r := range requests {
		total = total.Add(r.LeaveTaken)
	}
	return total, nil
}
