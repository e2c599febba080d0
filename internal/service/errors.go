package service

import (
	"errors"
	"strings"
)

var (
	// ErrInvalidRideID is returned when a ride ID is empty or not a UUID.
	ErrInvalidRideID = errors.New("invalid ride id")

	// ErrInvalidUserID is returned when the acting user ID is empty.
	ErrInvalidUserID = errors.New("invalid user id")

	// ErrInvalidCommentID is returned when a comment ID is empty or not a UUID.
	ErrInvalidCommentID = errors.New("invalid comment id")

	// ErrInvalidLocation is returned when search coordinates or radius are invalid.
	ErrInvalidLocation = errors.New("invalid location")

	// ErrRideFull is returned when a ride has no seat left.
	ErrRideFull = errors.New("ride is full")

	// ErrAlreadyJoined is returned when the user already participates in the ride.
	ErrAlreadyJoined = errors.New("already joined this ride")

	// ErrNotParticipant is returned when leaving a ride the user never joined.
	ErrNotParticipant = errors.New("not a participant of this ride")

	// ErrRideArchived is returned when joining or editing an archived ride.
	ErrRideArchived = errors.New("ride is archived")

	// ErrNotInSeries is returned when a series-scoped operation targets a single ride.
	ErrNotInSeries = errors.New("ride is not part of a series")

	// ErrCapacityBelowParticipants is returned when maxRiders would drop below the current participant count.
	ErrCapacityBelowParticipants = errors.New("maxRiders is below the current participant count")

	// ErrNearbySearchUnavailable is returned when no location index is configured.
	ErrNearbySearchUnavailable = errors.New("nearby search unavailable")

	// ErrForbidden is returned when the acting user may not perform the operation.
	ErrForbidden = errors.New("forbidden")
)

// ValidationError collects every problem found in a request.
type ValidationError struct {
	Messages []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Messages, "; ")
}

// validator accumulates validation messages.
type validator struct {
	messages []string
}

func (v *validator) check(ok bool, msg string) {
	if !ok {
		v.messages = append(v.messages, msg)
	}
}

func (v *validator) add(msg string) {
	v.messages = append(v.messages, msg)
}

// err returns a *ValidationError when any check failed, nil otherwise.
func (v *validator) err() error {
	if len(v.messages) == 0 {
		return nil
	}
	return &ValidationError{Messages: v.messages}
}
