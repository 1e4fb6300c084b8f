package model

import "time"

// Flash sale lifecycle states.  A scheduler flips SCHEDULED to ACTIVE when
// starts_at passes and ACTIVE to ENDED when ends_at passes; nothing else
// mutates the status column.
const (
    SaleStatusScheduled = "SCHEDULED"
    SaleStatusActive    = "ACTIVE"
    SaleStatusEnded     = "ENDED"
)

// FlashSale represents a limited-stock sale event.  The quantity columns
// are owned by the inventory ledger and mutated only through conditional
// UPDATEs inside a transaction:
//
//  TotalQuantity    – fixed at creation, never changes.
//  SoldQuantity     – stock backing CONFIRMED reservations; monotonic.
//  ReservedQuantity – stock borrowed by PENDING reservations; returned on
//                     expiry or cancellation.
//
// Available stock is always total - sold - reserved.
type FlashSale struct {
    ID               uint64    // flash_sales.id
    ProductName      string    // flash_sales.product_name
    TotalQuantity    uint32    // flash_sales.total_quantity
    SoldQuantity     uint32    // flash_sales.sold_quantity
    ReservedQuantity uint32    // flash_sales.reserved_quantity
    MaxPerUser       uint32    // flash_sales.max_per_user
    StartsAt         time.Time // flash_sales.starts_at
    EndsAt           time.Time // flash_sales.ends_at
    Status           string    // flash_sales.status
    CreatedAt        time.Time // flash_sales.created_at
    UpdatedAt        time.Time // flash_sales.updated_at
}

// Remaining returns the stock still available for new reservations.
func (s FlashSale) Remaining() uint32 {
    used := s.SoldQuantity + s.ReservedQuantity
    if used >= s.TotalQuantity {
        return 0
    }
    return s.TotalQuantity - used
}
