package repository

import "errors"

var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("entity not found")

	// ErrDuplicate is returned when an insert violates a uniqueness constraint.
	ErrDuplicate = errors.New("entity already exists")

	// ErrCapacityReached is returned when a ride has no free seat left at write time.
	ErrCapacityReached = errors.New("ride capacity reached")

	// ErrBelowParticipants is returned when an edit would set max_riders below
	// the number of riders already joined.
	ErrBelowParticipants = errors.New("capacity below participant count")

	// ErrRideNotActive is returned when a write requires an active ride.
	ErrRideNotActive = errors.New("ride is not active")
)
