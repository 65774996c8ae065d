package event

import "errors"

// ValidationError marks a payload the caller can fix. The API layer maps it
// to a 400 with a generic message; the reason never reaches the client.
type ValidationError struct {
	reason string
}

func (e *ValidationError) Error() string { return e.reason }

var (
	ErrInvalidEventType      = &ValidationError{"unknown event type"}
	ErrInvalidOccurrence     = &ValidationError{"occurred_at_local must be RFC3339 or a local wall-clock time"}
	ErrInvalidTimezone       = &ValidationError{"invalid timezone"}
	ErrDiaperTypeRequired    = &ValidationError{"diaper_type is required for diaper events"}
	ErrPumpingDetailRequired = &ValidationError{"pumping events require amount_ml or duration_min"}
	ErrSleepEndBeforeStart   = &ValidationError{"sleep end precedes its start"}
	ErrNegativeQuantity      = &ValidationError{"amount_ml and duration_min must be non-negative"}
	ErrInvalidDetailValue    = &ValidationError{"detail value outside its allowed set"}
	ErrIdempotencyKeyReused  = &ValidationError{"idempotency key already used with a different resource"}
	ErrRangeInverted         = &ValidationError{"range end precedes its start"}
	ErrInvalidMonth          = &ValidationError{"month must be between 1 and 12"}
)

func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// Payload is the write-side input for Create and Update. OccurredAtLocal is
// the wall-clock time as the user entered it; zone handling happens during
// normalization, not here.
type Payload struct {
	EventType       string
	OccurredAtLocal string
	Timezone        string
	Notes           string
	Details         Details
}

// Details carries the union of all type-specific fields; which ones matter is
// decided by the event type during detail dispatch.
type Details struct {
	// feeding + pumping
	Method      string `json:"method,omitempty"`
	AmountML    *int   `json:"amount_ml,omitempty"`
	Side        string `json:"side,omitempty"`
	DurationMin *int   `json:"duration_min,omitempty"`

	// diaper
	DiaperType  string `json:"diaper_type,omitempty"`
	Color       string `json:"color,omitempty"`
	Consistency string `json:"consistency,omitempty"`

	// sleep
	SleepEndLocal string `json:"sleep_end_local,omitempty"`
	Quality       string `json:"quality,omitempty"`
}

func validFeedingMethod(m string) bool {
	switch m {
	case "breast", "bottle", "formula", "solids", "other":
		return true
	}
	return false
}

func validSide(s string) bool {
	switch s {
	case "left", "right", "both":
		return true
	}
	return false
}

func validDiaperType(t string) bool {
	switch t {
	case "wet", "dirty", "mixed", "dry":
		return true
	}
	return false
}

func validSleepQuality(q string) bool {
	switch q {
	case "good", "ok", "rough", "unknown":
		return true
	}
	return false
}

func checkNonNegative(values ...*int) error {
	for _, v := range values {
		if v != nil && *v < 0 {
			return ErrNegativeQuantity
		}
	}
	return nil
}

func present(v *int) bool {
	return v != nil && *v != 0
}
