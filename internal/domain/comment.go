package domain

import "time"

// Comment is a free-text message left on a ride.
type Comment struct {
	ID        string
	RideID    string
	UserID    string
	Body      string
	CreatedAt time.Time
}
