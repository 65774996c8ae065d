package event

import "time"

// EventDTO is the flat wire shape of an event. Details holds the DTO matching
// the event type.
type EventDTO struct {
	ID            string `json:"id"`
	FamilyID      string `json:"family_id"`
	BabyID        string `json:"baby_id"`
	EventType     string `json:"event_type"`
	OccurredAtUTC string `json:"occurred_at_utc"`
	Timezone      string `json:"timezone"`
	Notes         string `json:"notes"`
	SchemaVersion uint   `json:"schema_version"`
	CreatedBy     uint64 `json:"created_by"`
	CreatedAt     string `json:"created_at"`
	UpdatedAt     string `json:"updated_at"`
	Details       any    `json:"details"`
}

type FeedingDTO struct {
	Method      string `json:"method"`
	AmountML    *int   `json:"amount_ml"`
	Side        string `json:"side"`
	DurationMin *int   `json:"duration_min"`
}

type DiaperDTO struct {
	DiaperType  string `json:"diaper_type"`
	Color       string `json:"color"`
	Consistency string `json:"consistency"`
}

type SleepDTO struct {
	StartAtUTC string  `json:"start_at_utc"`
	EndAtUTC   *string `json:"end_at_utc"`
	Quality    string  `json:"quality"`
}

type PumpingDTO struct {
	AmountML    *int   `json:"amount_ml"`
	DurationMin *int   `json:"duration_min"`
	Side        string `json:"side"`
}

// Serialize flattens an event and its preloaded detail into the wire shape.
func Serialize(ev *Event) EventDTO {
	dto := EventDTO{
		ID:            ev.ID.String(),
		FamilyID:      ev.FamilyID.String(),
		BabyID:        ev.BabyID.String(),
		EventType:     ev.EventType,
		OccurredAtUTC: ev.OccurredAtUTC.UTC().Format(time.RFC3339),
		Timezone:      ev.Timezone,
		Notes:         ev.Notes,
		SchemaVersion: ev.SchemaVersion,
		CreatedBy:     ev.CreatedByID,
		CreatedAt:     ev.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:     ev.UpdatedAt.UTC().Format(time.RFC3339),
		Details:       struct{}{},
	}

	switch ev.EventType {
	case TypeFeeding:
		if d := ev.FeedingDetail; d != nil {
			dto.Details = FeedingDTO{
				Method:      d.Method,
				AmountML:    d.AmountML,
				Side:        d.Side,
				DurationMin: d.DurationMin,
			}
		}
	case TypeDiaper:
		if d := ev.DiaperDetail; d != nil {
			dto.Details = DiaperDTO{
				DiaperType:  d.DiaperType,
				Color:       d.Color,
				Consistency: d.Consistency,
			}
		}
	case TypeSleep:
		if d := ev.SleepDetail; d != nil {
			sd := SleepDTO{
				StartAtUTC: d.StartAtUTC.UTC().Format(time.RFC3339),
				Quality:    d.Quality,
			}
			if d.EndAtUTC != nil {
				end := d.EndAtUTC.UTC().Format(time.RFC3339)
				sd.EndAtUTC = &end
			}
			dto.Details = sd
		}
	case TypePumping:
		if d := ev.PumpingDetail; d != nil {
			dto.Details = PumpingDTO{
				AmountML:    d.AmountML,
				DurationMin: d.DurationMin,
				Side:        d.Side,
			}
		}
	}
	return dto
}
