package domain

import "time"

// Participant links a user to a ride they joined.
type Participant struct {
	RideID   string
	UserID   string
	JoinedAt time.Time
}
