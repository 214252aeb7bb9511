package models

// UrgencyLevel is the staff-assigned triage classification of an entry.
// The zero value means "not classified".
type UrgencyLevel string

const (
	UrgencyHigh   UrgencyLevel = "high"
	UrgencyMedium UrgencyLevel = "medium"
	UrgencyLow    UrgencyLevel = "low"
)

// UrgencyLevels returns the valid levels from most to least urgent.
func UrgencyLevels() []UrgencyLevel {
	return []UrgencyLevel{UrgencyHigh, UrgencyMedium, UrgencyLow}
}

func (u UrgencyLevel) IsValid() bool {
	switch u {
	case UrgencyHigh, UrgencyMedium, UrgencyLow:
		return true
	}
	return false
}
