package domain

import "time"

// RideStatus represents the lifecycle state of a ride.
type RideStatus string

const (
	RideStatusActive   RideStatus = "active"
	RideStatusArchived RideStatus = "archived"
)

// Difficulty is the ordinal difficulty grade of a ride, easiest first.
type Difficulty string

const (
	DifficultyE  Difficulty = "E"
	DifficultyD  Difficulty = "D"
	DifficultyC  Difficulty = "C"
	DifficultyB  Difficulty = "B"
	DifficultyA  Difficulty = "A"
	DifficultyAA Difficulty = "AA"
)

var difficultyRank = map[Difficulty]int{
	DifficultyE:  0,
	DifficultyD:  1,
	DifficultyC:  2,
	DifficultyB:  3,
	DifficultyA:  4,
	DifficultyAA: 5,
}

// Valid reports whether d is one of the known grades.
func (d Difficulty) Valid() bool {
	_, ok := difficultyRank[d]
	return ok
}

// Rank returns the ordinal position of d (E=0 ... AA=5), or -1 if unknown.
func (d Difficulty) Rank() int {
	if r, ok := difficultyRank[d]; ok {
		return r
	}
	return -1
}

// RideType categorizes the kind of group ride.
type RideType string

const (
	RideTypeRoad     RideType = "road"
	RideTypeGravel   RideType = "gravel"
	RideTypeMTB      RideType = "mtb"
	RideTypeSocial   RideType = "social"
	RideTypeTraining RideType = "training"
)

// Valid reports whether t is a known ride type.
func (t RideType) Valid() bool {
	switch t {
	case RideTypeRoad, RideTypeGravel, RideTypeMTB, RideTypeSocial, RideTypeTraining:
		return true
	}
	return false
}

// Terrain describes the profile of the route.
type Terrain string

const (
	TerrainFlat        Terrain = "flat"
	TerrainRolling     Terrain = "rolling"
	TerrainHilly       Terrain = "hilly"
	TerrainMountainous Terrain = "mountainous"
)

// Valid reports whether t is a known terrain.
func (t Terrain) Valid() bool {
	switch t {
	case TerrainFlat, TerrainRolling, TerrainHilly, TerrainMountainous:
		return true
	}
	return false
}

// RideDetails holds the descriptive attributes shared by every ride of a series.
type RideDetails struct {
	Title       string
	Distance    float64 // km
	Difficulty  Difficulty
	MaxRiders   int
	Address     string
	Latitude    float64
	Longitude   float64
	RideType    RideType
	Pace        float64 // average km/h
	Terrain     Terrain
	RouteURL    string
	Description string
}

// Ride represents one scheduled group ride.
type Ride struct {
	ID      string
	OwnerID string
	RideDetails

	// DateTime is the wall-clock start of the ride, stored without a zone.
	DateTime time.Time
	Status   RideStatus

	IsRecurring      bool
	RecurringType    RecurrenceType
	RecurringDay     int
	RecurringTime    string
	RecurringEndDate time.Time
	SeriesID         string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// InSeries reports whether the ride was generated from a recurrence rule.
func (r *Ride) InSeries() bool {
	return r.IsRecurring && r.SeriesID != ""
}

// IsSeriesHead reports whether the ride is the canonical first ride of its series.
func (r *Ride) IsSeriesHead() bool {
	return r.InSeries() && r.SeriesID == r.ID
}

// RideFilter narrows ride listings. Zero values are ignored.
type RideFilter struct {
	Status     RideStatus
	OwnerID    string
	SeriesID   string
	Difficulty Difficulty
	From       time.Time
	To         time.Time
	Limit      int
	Offset     int
}
