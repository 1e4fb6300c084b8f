// Package queue defines message payloads exchanged over the message broker.
package queue

// Reservation event types published to the reservation.events queue.
const (
    EventReservationConfirmed = "reservation.confirmed"
    EventReservationExpired   = "reservation.expired"
)

// ReservationEvent is published when a reservation reaches a terminal
// state the rest of the platform cares about: confirmed stock for the
// order service, expired holds for analytics and ops dashboards.  It
// carries enough information for downstream consumers to act without
// querying the primary database.
type ReservationEvent struct {
    Type          string `json:"type"`
    ReservationID uint64 `json:"reservation_id"`
    SaleID        uint64 `json:"sale_id"`
    UserID        uint64 `json:"user_id"`
    Quantity      uint32 `json:"quantity"`
    ProductName   string `json:"product_name,omitempty"`
    OccurredAt    string `json:"occurred_at"`
}
