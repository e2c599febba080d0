package service

import (
	"groupride/internal/domain"
	"groupride/internal/redis"
)

func rideToCached(r *domain.Ride) *redis.CachedRide {
	return &redis.CachedRide{
		ID:               r.ID,
		OwnerID:          r.OwnerID,
		Title:            r.Title,
		Distance:         r.Distance,
		Difficulty:       string(r.Difficulty),
		MaxRiders:        r.MaxRiders,
		Address:          r.Address,
		Latitude:         r.Latitude,
		Longitude:        r.Longitude,
		RideType:         string(r.RideType),
		Pace:             r.Pace,
		Terrain:          string(r.Terrain),
		RouteURL:         r.RouteURL,
		Description:      r.Description,
		DateTime:         r.DateTime,
		Status:           string(r.Status),
		IsRecurring:      r.IsRecurring,
		RecurringType:    string(r.RecurringType),
		RecurringDay:     r.RecurringDay,
		RecurringTime:    r.RecurringTime,
		RecurringEndDate: r.RecurringEndDate,
		SeriesID:         r.SeriesID,
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
	}
}

func cachedToRide(c *redis.CachedRide) *domain.Ride {
	return &domain.Ride{
		ID:      c.ID,
		OwnerID: c.OwnerID,
		RideDetails: domain.RideDetails{
			Title:       c.Title,
			Distance:    c.Distance,
			Difficulty:  domain.Difficulty(c.Difficulty),
			MaxRiders:   c.MaxRiders,
			Address:     c.Address,
			Latitude:    c.Latitude,
			Longitude:   c.Longitude,
			RideType:    domain.RideType(c.RideType),
			Pace:        c.Pace,
			Terrain:     domain.Terrain(c.Terrain),
			RouteURL:    c.RouteURL,
			Description: c.Description,
		},
		DateTime:         c.DateTime,
		Status:           domain.RideStatus(c.Status),
		IsRecurring:      c.IsRecurring,
		RecurringType:    domain.RecurrenceType(c.RecurringType),
		RecurringDay:     c.RecurringDay,
		RecurringTime:    c.RecurringTime,
		RecurringEndDate: c.RecurringEndDate,
		SeriesID:         c.SeriesID,
		CreatedAt:        c.CreatedAt,
		UpdatedAt:        c.UpdatedAt,
	}
}
