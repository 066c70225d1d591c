package transaction

import "math/big"

// Balance settlement policy for a send, in wei. These are pure on purpose:
// the coordinator and the reconciler both apply them, and they carry the one
// genuinely tricky invariant of the system.
//
// Completed: the value moved and gas was burned.
// Reverted:  the value did not move but gas was still burned.
// Pending:   outcome unknown; amount plus the estimated gas is held against
//            the sender so the funds cannot be double-spent while the
//            transaction may still land.

// SettleCompleted returns balance - amount - gasCost.
func SettleCompleted(balance, amount, gasCost *big.Int) *big.Int {
	out := new(big.Int).Sub(balance, amount)
	return out.Sub(out, gasCost)
}

// SettleReverted returns balance - gasCost.
func SettleReverted(balance, gasCost *big.Int) *big.Int {
	return new(big.Int).Sub(balance, gasCost)
}

// SettlePending returns balance - (amount + estimatedGas), the optimistic
// reservation made when the confirmation wait times out.
func SettlePending(balance, amount, estimatedGas *big.Int) *big.Int {
	out := new(big.Int).Sub(balance, amount)
	return out.Sub(out, estimatedGas)
}

// PendingReservation returns amount + estimatedGas, the figure recorded on
// the transaction row so the reservation can be settled later.
func PendingReservation(amount, estimatedGas *big.Int) *big.Int {
	return new(big.Int).Add(amount, estimatedGas)
}

// ReconcileCompleted returns the refund owed to the sender once a pending
// transaction is observed successful: reserved - (amount + actualGas). The
// estimate was conservative, so this is normally non-negative; a negative
// refund (actual gas above the reservation) is still applied to keep the
// ledger truthful.
func ReconcileCompleted(reserved, amount, actualGas *big.Int) *big.Int {
	out := new(big.Int).Sub(reserved, amount)
	return out.Sub(out, actualGas)
}

// ReconcileReverted returns the refund once a pending transaction is
// observed reverted: reserved - actualGas. The value never moved.
func ReconcileReverted(reserved, actualGas *big.Int) *big.Int {
	return new(big.Int).Sub(reserved, actualGas)
}
