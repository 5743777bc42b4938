package model

// PoolStatus labels how freely a pool is selling.
type PoolStatus string

const (
	StatusAvailable    PoolStatus = "available"
	StatusLimited      PoolStatus = "limited"
	StatusWaitlistOnly PoolStatus = "waitlist_only"
	StatusClosed       PoolStatus = "closed"
)

// Occupancy thresholds for the status label.
const (
	LimitedThreshold      = 0.85
	WaitlistOnlyThreshold = 0.98
)

// InventoryStatus is a derived, point-in-time view of a pool.  It is
// never stored.  OverbookingBuffer is the configured allowance beyond
// TotalSeats; OverbookingLimit is what is left of it after seats already
// sold or held past capacity.  AvailableSeats is TotalSeats minus sold
// and held, floored at zero; seats taken from the buffer show up only as
// a smaller OverbookingLimit, never as a negative AvailableSeats.
type InventoryStatus struct {
	Pool               PoolKey    `json:"pool"`
	TotalSeats         int        `json:"total_seats"`
	SoldSeats          int        `json:"sold_seats"`
	HeldSeats          int        `json:"held_seats"`
	AvailableSeats     int        `json:"available_seats"`
	OverbookingBuffer  int        `json:"overbooking_buffer"`
	OverbookingLimit   int        `json:"overbooking_limit"`
	EffectiveAvailable int        `json:"effective_available"`
	OccupancyRate      float64    `json:"occupancy_rate"`
	WaitingCount       int        `json:"waiting_count"`
	Status             PoolStatus `json:"status"`
}

// AllocationRequest is the input of SeatAllocator.Allocate.
type AllocationRequest struct {
	Pool        PoolKey
	Seats       int
	OwnerUserID string
	SessionID   string
}

// AllocationResult reports what Allocate granted.  Success is true when at
// least one seat was held; a waitlisted-only outcome is Success=false with
// a WaitlistPosition.
type AllocationResult struct {
	Success          bool    `json:"success"`
	HoldID           string  `json:"hold_id,omitempty"`
	SeatsAllocated   int     `json:"seats_allocated"`
	ExpiresAt        *string `json:"expires_at,omitempty"`
	WaitlistEntryID  string  `json:"waitlist_entry_id,omitempty"`
	WaitlistPosition *int    `json:"waitlist_position,omitempty"`
	Message          string  `json:"message"`
}
