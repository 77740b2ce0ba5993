package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PaymentMethod string

const (
	PaymentMethodTON   PaymentMethod = "ton"
	PaymentMethodBkash PaymentMethod = "bkash"
)

func (m PaymentMethod) Valid() bool {
	return m == PaymentMethodTON || m == PaymentMethodBkash
}

type WithdrawalStatus string

const (
	WithdrawalStatusPending   WithdrawalStatus = "pending"
	WithdrawalStatusApproved  WithdrawalStatus = "approved"
	WithdrawalStatusCompleted WithdrawalStatus = "completed"
	WithdrawalStatusRejected  WithdrawalStatus = "rejected"
	WithdrawalStatusCancelled WithdrawalStatus = "cancelled"
)

// ParseWithdrawalStatus rejects anything outside the known set.
func ParseWithdrawalStatus(s string) (WithdrawalStatus, error) {
	switch st := WithdrawalStatus(s); st {
	case WithdrawalStatusPending, WithdrawalStatusApproved, WithdrawalStatusCompleted,
		WithdrawalStatusRejected, WithdrawalStatusCancelled:
		return st, nil
	}
	return "", fmt.Errorf("unknown withdrawal status %q", s)
}

func (s WithdrawalStatus) IsTerminal() bool {
	switch s {
	case WithdrawalStatusCompleted, WithdrawalStatusRejected, WithdrawalStatusCancelled:
		return true
	}
	return false
}

type WithdrawalAction string

const (
	WithdrawalActionApprove  WithdrawalAction = "approve"
	WithdrawalActionComplete WithdrawalAction = "complete"
	WithdrawalActionReject   WithdrawalAction = "reject"
	WithdrawalActionCancel   WithdrawalAction = "cancel"
)

type Actor string

const (
	ActorOwner Actor = "owner"
	ActorAdmin Actor = "admin"
)

// Actor returns who may perform the action.
func (a WithdrawalAction) Actor() Actor {
	if a == WithdrawalActionCancel {
		return ActorOwner
	}
	return ActorAdmin
}

// withdrawalTransitions is the complete state machine: source -> action -> target.
// Pairs missing from the table are illegal.
var withdrawalTransitions = map[WithdrawalStatus]map[WithdrawalAction]WithdrawalStatus{
	WithdrawalStatusPending: {
		WithdrawalActionApprove:  WithdrawalStatusApproved,
		WithdrawalActionComplete: WithdrawalStatusCompleted,
		WithdrawalActionReject:   WithdrawalStatusRejected,
		WithdrawalActionCancel:   WithdrawalStatusCancelled,
	},
	WithdrawalStatusApproved: {
		WithdrawalActionComplete: WithdrawalStatusCompleted,
	},
}

// NextWithdrawalStatus looks up the target of applying action in state from.
func NextWithdrawalStatus(from WithdrawalStatus, action WithdrawalAction) (WithdrawalStatus, bool) {
	to, ok := withdrawalTransitions[from][action]
	return to, ok
}

// AdminActionFor maps a status an admin asks for to the action that produces it.
// Pending and cancelled are never admin targets.
func AdminActionFor(target WithdrawalStatus) (WithdrawalAction, bool) {
	switch target {
	case WithdrawalStatusApproved:
		return WithdrawalActionApprove, true
	case WithdrawalStatusCompleted:
		return WithdrawalActionComplete, true
	case WithdrawalStatusRejected:
		return WithdrawalActionReject, true
	}
	return "", false
}

// HoldState tracks what happened to the funds debited at request time.
type HoldState string

const (
	HoldStateHeld      HoldState = "held"
	HoldStateReleased  HoldState = "released"
	HoldStateFinalized HoldState = "finalized"
)

type Withdrawal struct {
	ID          uuid.UUID        `json:"id" db:"id"`
	UserID      int64            `json:"user_id" db:"user_id"`
	Amount      decimal.Decimal  `json:"amount" db:"amount"`
	Fee         decimal.Decimal  `json:"fee" db:"fee"`
	NetAmount   decimal.Decimal  `json:"net_amount" db:"net_amount"`
	Method      PaymentMethod    `json:"withdrawal_method" db:"method"`
	Destination string           `json:"destination" db:"destination"`
	Status      WithdrawalStatus `json:"status" db:"status"`
	HoldState   HoldState        `json:"hold_state" db:"hold_state"`
	AdminNotes  *string          `json:"admin_notes,omitempty" db:"admin_notes"`
	RequestedAt time.Time        `json:"requested_at" db:"requested_at"`
	UpdatedAt   time.Time        `json:"updated_at" db:"updated_at"`
	ResolvedAt  *time.Time       `json:"resolved_at,omitempty" db:"resolved_at"`
	ResolvedBy  *int64           `json:"resolved_by,omitempty" db:"resolved_by"`
}

// WithdrawalWithUser is the admin list row.
type WithdrawalWithUser struct {
	Withdrawal
	Username  *string `json:"username,omitempty" db:"username"`
	FirstName *string `json:"first_name,omitempty" db:"first_name"`
}

type WithdrawalFilter struct {
	UserID *int64
	Status *WithdrawalStatus
}
