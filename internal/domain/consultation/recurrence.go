package consultation

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vidaplus/convenio-api/internal/domain/network"
)

// Recurrence units.
const (
	RecurDaily  = "daily"
	RecurWeekly = "weekly"
)

// maxOccurrences bounds a single recurring request to one year of daily
// slots.
const maxOccurrences = 366

// RecurrenceRequest expands into a sequence of consultations. It is never
// persisted. Start carries the caller's wall clock; TimezoneOffsetMinutes is
// the caller's UTC offset (e.g. -180 for UTC-3) used to normalize Start and
// EndDate to absolute instants.
type RecurrenceRequest struct {
	Patient               network.PatientRef
	ServiceID             uuid.UUID
	LocationID            *uuid.UUID
	Value                 float64
	Start                 time.Time
	TimezoneOffsetMinutes int
	Unit                  string
	Interval              int
	Occurrences           int
	EndDate               *time.Time
	Notes                 *string
}

// RecurrenceFailure records one occurrence that could not be created.
type RecurrenceFailure struct {
	Occurrence  int       `json:"occurrence"`
	ScheduledAt time.Time `json:"scheduled_at"`
	Reason      string    `json:"reason"`
}

// RecurrenceResult reports the outcome of an expansion. Failures never abort
// the batch.
type RecurrenceResult struct {
	CreatedCount  int                 `json:"created_count"`
	FailedCount   int                 `json:"failed_count"`
	Consultations []Consultation      `json:"consultations"`
	Failures      []RecurrenceFailure `json:"failures,omitempty"`
}

func (r RecurrenceRequest) step() time.Duration {
	days := r.Interval
	if r.Unit == RecurWeekly {
		days *= 7
	}
	return time.Duration(days) * 24 * time.Hour
}

func (r RecurrenceRequest) validate() error {
	if r.Unit != RecurDaily && r.Unit != RecurWeekly {
		return fmt.Errorf("%w: recurrence unit must be daily or weekly", ErrInvalidInput)
	}
	if r.Interval < 1 {
		return fmt.Errorf("%w: interval must be positive", ErrInvalidInput)
	}
	if r.Occurrences < 1 {
		return fmt.Errorf("%w: occurrences must be positive", ErrInvalidInput)
	}
	if r.Occurrences > maxOccurrences {
		return fmt.Errorf("%w: occurrences must not exceed %d", ErrInvalidInput, maxOccurrences)
	}
	if r.Start.IsZero() {
		return fmt.Errorf("%w: start is required", ErrInvalidInput)
	}
	return nil
}

// normalize shifts a wall-clock instant by the caller's offset to obtain the
// absolute instant: a 09:00 wall clock at UTC-3 is 12:00 UTC.
func normalize(t time.Time, offsetMinutes int) time.Time {
	return t.Add(-time.Duration(offsetMinutes) * time.Minute).UTC()
}

// GenerateRecurring expands the request, creating each occurrence through the
// single-consultation path. A failing occurrence is recorded and the
// expansion continues; one bad slot never discards the series.
func (s *Service) GenerateRecurring(ctx context.Context, professionalID uuid.UUID, req RecurrenceRequest) (*RecurrenceResult, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	current := normalize(req.Start, req.TimezoneOffsetMinutes)
	var end *time.Time
	if req.EndDate != nil {
		e := normalize(*req.EndDate, req.TimezoneOffsetMinutes)
		end = &e
	}

	result := &RecurrenceResult{}
	for i := 0; i < req.Occurrences; i++ {
		if end != nil && current.After(*end) {
			break
		}

		c, err := s.Create(ctx, professionalID, CreateInput{
			Patient:     req.Patient,
			ServiceID:   req.ServiceID,
			LocationID:  req.LocationID,
			Value:       req.Value,
			ScheduledAt: current,
			Notes:       req.Notes,
		})
		if err != nil {
			result.FailedCount++
			result.Failures = append(result.Failures, RecurrenceFailure{
				Occurrence:  i + 1,
				ScheduledAt: current,
				Reason:      err.Error(),
			})
		} else {
			result.CreatedCount++
			result.Consultations = append(result.Consultations, *c)
		}

		current = current.Add(req.step())
	}
	return result, nil
}
