package model

import "time"

// PointsAccount holds a user's spendable balance. Balance never goes below zero.
type PointsAccount struct {
    UserID    uint64    `db:"user_id"`
    Balance   int64     `db:"balance"`
    UpdatedAt time.Time `db:"updated_at"`
}

// EntryReason tags a ledger movement.
type EntryReason string

const (
    ReasonSignup  EntryReason = "SIGNUP"
    ReasonCharge  EntryReason = "CHARGE"
    ReasonBooking EntryReason = "BOOKING"
    ReasonRefund  EntryReason = "REFUND"
)

// PointEntry is one append-only journal row written alongside every balance
// change.
type PointEntry struct {
    ID            uint64      `db:"id" json:"id"`
    UserID        uint64      `db:"user_id" json:"user_id"`
    Delta         int64       `db:"delta" json:"delta"`
    BalanceAfter  int64       `db:"balance_after" json:"balance_after"`
    Reason        EntryReason `db:"reason" json:"reason"`
    ReservationID *uint64     `db:"reservation_id" json:"reservation_id,omitempty"`
    CreatedAt     time.Time   `db:"created_at" json:"created_at"`
}
