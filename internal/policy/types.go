package policy

import "github.com/samijaber1/aegis-watch/internal/model"

// Availability deviation tiers, in percentage points below the floor
const (
	availabilityCritical = 5.0
	availabilityHigh     = 2.0
	availabilityMedium   = 1.0
)

// Ceiling deviation tiers, in percent over the threshold
const (
	overCritical = 100.0
	overHigh     = 50.0
	overMedium   = 25.0
)

// Recovery describes whether a breached threshold is compliant again
type Recovery struct {
	Kind      model.ViolationKind
	Recovered bool
	Current   float64
	Threshold float64
	Reason    string
}
