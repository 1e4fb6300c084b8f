package model

import "time"

// Reservation states.  PENDING is the only non-terminal state; every
// PENDING reservation either becomes CONFIRMED (stock permanently sold)
// or is released back to the ledger as EXPIRED or CANCELLED.
const (
    ReservationPending   = "PENDING"
    ReservationConfirmed = "CONFIRMED"
    ReservationExpired   = "EXPIRED"
    ReservationCancelled = "CANCELLED"
)

// Reservation records a time-boxed hold on flash-sale stock.  Its quantity
// is borrowed from the sale's ledger at creation and stays borrowed until
// the reservation reaches a terminal state.
//
// Fields:
//  ID        – primary key identifier.
//  SaleID    – sale whose stock is held.
//  UserID    – user holding the stock.
//  Quantity  – units of stock held.
//  Status    – PENDING, CONFIRMED, EXPIRED or CANCELLED.
//  ExpiresAt – when an unconfirmed hold is released by the reaper.
//  CreatedAt – creation timestamp.
//  UpdatedAt – last transition timestamp.
type Reservation struct {
    ID        uint64    // reservations.id
    SaleID    uint64    // reservations.sale_id
    UserID    uint64    // reservations.user_id
    Quantity  uint32    // reservations.quantity
    Status    string    // reservations.status
    ExpiresAt time.Time // reservations.expires_at
    CreatedAt time.Time // reservations.created_at
    UpdatedAt time.Time // reservations.updated_at
}

// Terminal reports whether the reservation can no longer change state.
func (r Reservation) Terminal() bool {
    return r.Status != ReservationPending
}
