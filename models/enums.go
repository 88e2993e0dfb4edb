package models

import (
	"encoding/json"
	"errors"
)

// TransactionDirection tells which way cash moves through a box.
type TransactionDirection string

const (
	TransactionDirectionIncome  TransactionDirection = "Income"
	TransactionDirectionExpense TransactionDirection = "Expense"
)

func (t TransactionDirection) Valid() bool {
	return t == TransactionDirectionIncome || t == TransactionDirectionExpense
}

func (t *TransactionDirection) UnmarshalJSON(b []byte) error {
	var str string
	if err := json.Unmarshal(b, &str); err != nil {
		return errors.New("transaction direction must be string")
	}
	switch str {
	case "Income":
		*t = TransactionDirectionIncome
	case "Expense":
		*t = TransactionDirectionExpense
	default:
		return errors.New("invalid transaction direction")
	}
	return nil
}

// TransactionState replaces the legacy string comparison against a joined
// state-name lookup ("Pagado"). Only Applied entries carry a box effect.
type TransactionState string

const (
	TransactionStatePending  TransactionState = "Pending"
	TransactionStateApplied  TransactionState = "Applied"
	TransactionStateRefunded TransactionState = "Refunded"
)

func (t TransactionState) Valid() bool {
	switch t {
	case TransactionStatePending, TransactionStateApplied, TransactionStateRefunded:
		return true
	}
	return false
}

func (t *TransactionState) UnmarshalJSON(b []byte) error {
	var str string
	if err := json.Unmarshal(b, &str); err != nil {
		return errors.New("transaction state must be string")
	}
	v := TransactionState(str)
	if !v.Valid() {
		return errors.New("invalid transaction state")
	}
	*t = v
	return nil
}

// MovementKind tags every box history row.
type MovementKind string

const (
	MovementKindIncome          MovementKind = "Income"
	MovementKindExpense         MovementKind = "Expense"
	MovementKindPartialExpense  MovementKind = "PartialExpense"
	MovementKindReversalIncome  MovementKind = "ReversalIncome"
	MovementKindReversalExpense MovementKind = "ReversalExpense"
	MovementKindRefund          MovementKind = "Refund"
)

// PendingPaymentState: overflow debts start Pending; settlement flips them
// to Paid; cascade on delete of the source entry marks them Cancelled.
type PendingPaymentState string

const (
	PendingPaymentStatePending   PendingPaymentState = "Pending"
	PendingPaymentStatePaid      PendingPaymentState = "Paid"
	PendingPaymentStateCancelled PendingPaymentState = "Cancelled"
)

func (s PendingPaymentState) Valid() bool {
	switch s {
	case PendingPaymentStatePending, PendingPaymentStatePaid, PendingPaymentStateCancelled:
		return true
	}
	return false
}

func (s *PendingPaymentState) UnmarshalJSON(b []byte) error {
	var str string
	if err := json.Unmarshal(b, &str); err != nil {
		return errors.New("pending payment state must be string")
	}
	v := PendingPaymentState(str)
	if !v.Valid() {
		return errors.New("invalid pending payment state")
	}
	*s = v
	return nil
}

type UserRole string

const (
	UserRoleAdmin  UserRole = "Admin"
	UserRoleDriver UserRole = "Driver"
)

func (r UserRole) Valid() bool {
	return r == UserRoleAdmin || r == UserRoleDriver
}

// BoxEventAction mirrors the outbox action column.
type BoxEventAction string

const (
	BoxEventActionApply   BoxEventAction = "A"
	BoxEventActionReverse BoxEventAction = "R"
)

const (
	OutboxPublishStatusPending    = "PENDING"
	OutboxPublishStatusProcessing = "PROCESSING"
	OutboxPublishStatusSent       = "SENT"
	OutboxPublishStatusFailed     = "FAILED"
	OutboxPublishStatusDead       = "DEAD"
)
