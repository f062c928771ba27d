package model

// Unlimited is the sentinel limit for premium users.
const Unlimited = -1

// AvailabilitySnapshot is the computed quota state for one user. It is never
// persisted; display surfaces and the registration guard recompute it on read.
type AvailabilitySnapshot struct {
	Plan            PlanType `json:"plan"`
	TotalLimit      int      `json:"total_limit"` // -1 when unlimited
	UsedPlaces      int      `json:"used_places"`
	RemainingPlaces int      `json:"remaining_places"` // -1 when unlimited
	IsUnlimited     bool     `json:"is_unlimited"`
}

// HasRemaining reports whether at least one more place can be registered.
func (s AvailabilitySnapshot) HasRemaining() bool {
	return s.IsUnlimited || s.RemainingPlaces > 0
}
