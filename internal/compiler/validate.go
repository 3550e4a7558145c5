package compiler

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/timeline/internal/ir"
	"github.com/roach88/timeline/internal/scenario"
)

// Validation error codes (E100-E199)
const (
	ErrNameEmpty          = "E101" // name is required
	ErrEmptyDocument      = "E102" // no syncs and no intervals
	ErrDuplicateSync      = "E103" // duplicate sync id
	ErrDuplicateEvent     = "E104" // duplicate event id across the document
	ErrDuplicateInterval  = "E105" // duplicate interval id
	ErrDanglingRef        = "E106" // from/to resolves to no event
	ErrInvalidStatus      = "E107" // unknown event status name
	ErrInconsistentStatus = "E108" // authored statuses rejected at start
	ErrDurationOrder      = "E109" // min <= nominal <= max violated
)

// ValidationError represents a document validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks a document. All errors are returned (no fail-fast).
//
// The start-status check builds a scratch scenario and starts it, so it only
// runs once the document is structurally sound.
func Validate(doc *ir.Document) []ValidationError {
	var errs []ValidationError

	// E101
	if strings.TrimSpace(doc.Name) == "" {
		errs = append(errs, ValidationError{
			Field:   "name",
			Message: "name is required and must be non-empty",
			Code:    ErrNameEmpty,
		})
	}

	// E102
	if len(doc.Syncs) == 0 && len(doc.Intervals) == 0 {
		errs = append(errs, ValidationError{
			Field:   "syncs",
			Message: "a scenario needs at least one sync or interval",
			Code:    ErrEmptyDocument,
		})
	}

	errs = append(errs, validateSyncs(doc)...)
	errs = append(errs, validateIntervals(doc)...)

	if len(errs) == 0 {
		errs = append(errs, validateStartStatuses(doc)...)
	}
	return errs
}

func validateSyncs(doc *ir.Document) []ValidationError {
	var errs []ValidationError
	syncIDs := make(map[string]bool)
	eventIDs := make(map[string]bool)

	for i, s := range doc.Syncs {
		// E103
		if syncIDs[s.ID] {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("syncs[%d].id", i),
				Message: fmt.Sprintf("duplicate sync id: %q", s.ID),
				Code:    ErrDuplicateSync,
			})
		}
		syncIDs[s.ID] = true

		for j, id := range s.EventIDs() {
			// E104
			if eventIDs[id] {
				errs = append(errs, ValidationError{
					Field:   fmt.Sprintf("syncs[%d].events[%d].id", i, j),
					Message: fmt.Sprintf("duplicate event id: %q", id),
					Code:    ErrDuplicateEvent,
				})
			}
			eventIDs[id] = true
		}

		for j, ev := range s.Events {
			// E107
			if ev.Status == "" {
				continue
			}
			if _, err := scenario.ParseStatus(ev.Status); err != nil {
				errs = append(errs, ValidationError{
					Field:   fmt.Sprintf("syncs[%d].events[%d].status", i, j),
					Message: err.Error(),
					Code:    ErrInvalidStatus,
				})
			}
		}
	}
	return errs
}

func validateIntervals(doc *ir.Document) []ValidationError {
	var errs []ValidationError
	idx := indexDocument(doc)
	seen := make(map[string]bool)

	for i, itv := range doc.Intervals {
		// E105
		if seen[itv.ID] {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("intervals[%d].id", i),
				Message: fmt.Sprintf("duplicate interval id: %q", itv.ID),
				Code:    ErrDuplicateInterval,
			})
		}
		seen[itv.ID] = true

		// E106
		_, _, fromOK := idx.resolve(itv.From)
		if !fromOK {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("intervals[%d].from", i),
				Message: fmt.Sprintf("interval %q: no event or sync named %q", itv.ID, itv.From),
				Code:    ErrDanglingRef,
			})
		}
		_, _, toOK := idx.resolve(itv.To)
		if !toOK {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("intervals[%d].to", i),
				Message: fmt.Sprintf("interval %q: no event or sync named %q", itv.ID, itv.To),
				Code:    ErrDanglingRef,
			})
		}

		// E109
		maxDur := itv.MaxOrInfinite()
		if itv.Min > itv.Nominal || itv.Nominal > maxDur {
			errs = append(errs, ValidationError{
				Field: fmt.Sprintf("intervals[%d]", i),
				Message: fmt.Sprintf("interval %q: need min <= nominal <= max, got %s, %s, %s",
					itv.ID, itv.Min, itv.Nominal, maxDur),
				Code: ErrDurationOrder,
			})
		}
	}
	return errs
}

// validateStartStatuses starts a scratch instance of the document (E108).
func validateStartStatuses(doc *ir.Document) []ValidationError {
	sc, err := Instantiate(doc)
	if err != nil {
		return []ValidationError{{Field: "document", Message: err.Error(), Code: ErrInconsistentStatus}}
	}
	defer sc.Close()

	if err := sc.Start(); err != nil {
		field := "intervals"
		var ee *scenario.ExecutionError
		if errors.As(err, &ee) && ee.Interval != "" {
			field = fmt.Sprintf("intervals.%s", ee.Interval)
		}
		return []ValidationError{{Field: field, Message: err.Error(), Code: ErrInconsistentStatus}}
	}
	return nil
}
