package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"groupride/internal/domain"
	"groupride/internal/middleware"
	"groupride/internal/service"
)

// RideHandler handles HTTP requests for rides.
type RideHandler struct {
	rideService *service.RideService
}

// NewRideHandler creates a new RideHandler.
func NewRideHandler(rideService *service.RideService) *RideHandler {
	return &RideHandler{rideService: rideService}
}

// RideRequest is the HTTP request body for creating or editing a ride.
type RideRequest struct {
	Title       string  `json:"title"`
	Distance    float64 `json:"distance"`
	Difficulty  string  `json:"difficulty"`
	MaxRiders   int     `json:"maxRiders"`
	Address     string  `json:"address"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	RideType    string  `json:"rideType"`
	Pace        float64 `json:"pace"`
	Terrain     string  `json:"terrain"`
	RouteURL    string  `json:"route_url"`
	Description string  `json:"description"`
	DateTime    string  `json:"dateTime"`

	IsRecurring      bool   `json:"is_recurring"`
	RecurringType    string `json:"recurring_type"`
	RecurringDay     *int   `json:"recurring_day"`
	RecurringTime    string `json:"recurring_time"`
	RecurringEndDate string `json:"recurring_end_date"`
}

func (r RideRequest) details() domain.RideDetails {
	return domain.RideDetails{
		Title:       r.Title,
		Distance:    r.Distance,
		Difficulty:  domain.Difficulty(r.Difficulty),
		MaxRiders:   r.MaxRiders,
		Address:     r.Address,
		Latitude:    r.Latitude,
		Longitude:   r.Longitude,
		RideType:    domain.RideType(r.RideType),
		Pace:        r.Pace,
		Terrain:     domain.Terrain(r.Terrain),
		RouteURL:    r.RouteURL,
		Description: r.Description,
	}
}

// RideResponse is the HTTP representation of a ride.
type RideResponse struct {
	ID               string  `json:"id"`
	Title            string  `json:"title"`
	Distance         float64 `json:"distance"`
	Difficulty       string  `json:"difficulty"`
	MaxRiders        int     `json:"maxRiders"`
	Address          string  `json:"address"`
	Latitude         float64 `json:"latitude"`
	Longitude        float64 `json:"longitude"`
	RideType         string  `json:"rideType"`
	Pace             float64 `json:"pace"`
	Terrain          string  `json:"terrain"`
	RouteURL         string  `json:"route_url,omitempty"`
	Description      string  `json:"description,omitempty"`
	DateTime         string  `json:"dateTime"`
	Status           string  `json:"status"`
	OwnerID          string  `json:"ownerId"`
	IsRecurring      bool    `json:"is_recurring"`
	RecurringType    string  `json:"recurring_type,omitempty"`
	RecurringDay     *int    `json:"recurring_day,omitempty"`
	RecurringTime    string  `json:"recurring_time,omitempty"`
	RecurringEndDate string  `json:"recurring_end_date,omitempty"`
	SeriesID         string  `json:"series_id,omitempty"`
	CreatedAt        string  `json:"created_at"`
	UpdatedAt        string  `json:"updated_at"`

	ParticipantCount *int     `json:"participantCount,omitempty"`
	DistanceKm       *float64 `json:"distanceKm,omitempty"`
}

func toRideResponse(r *domain.Ride) RideResponse {
	resp := RideResponse{
		ID:          r.ID,
		Title:       r.Title,
		Distance:    r.Distance,
		Difficulty:  string(r.Difficulty),
		MaxRiders:   r.MaxRiders,
		Address:     r.Address,
		Latitude:    r.Latitude,
		Longitude:   r.Longitude,
		RideType:    string(r.RideType),
		Pace:        r.Pace,
		Terrain:     string(r.Terrain),
		RouteURL:    r.RouteURL,
		Description: r.Description,
		DateTime:    r.DateTime.Format(service.DateTimeLayout),
		Status:      string(r.Status),
		OwnerID:     r.OwnerID,
		IsRecurring: r.IsRecurring,
		SeriesID:    r.SeriesID,
		CreatedAt:   r.CreatedAt.UTC().Format(timestampLayout),
		UpdatedAt:   r.UpdatedAt.UTC().Format(timestampLayout),
	}

	if r.IsRecurring {
		day := r.RecurringDay
		resp.RecurringType = string(r.RecurringType)
		resp.RecurringDay = &day
		resp.RecurringTime = r.RecurringTime
		if !r.RecurringEndDate.IsZero() {
			resp.RecurringEndDate = r.RecurringEndDate.Format(service.DateLayout)
		}
	}

	return resp
}

const timestampLayout = "2006-01-02T15:04:05Z07:00"

// CreateRide handles POST /v1/rides
func (h *RideHandler) CreateRide(c *gin.Context) {
	var req RideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	userID, _ := middleware.CurrentUser(c)

	ride, err := h.rideService.CreateRide(c.Request.Context(), service.CreateRideRequest{
		OwnerID:          userID,
		Details:          req.details(),
		DateTime:         req.DateTime,
		IsRecurring:      req.IsRecurring,
		RecurringType:    req.RecurringType,
		RecurringDay:     req.RecurringDay,
		RecurringTime:    req.RecurringTime,
		RecurringEndDate: req.RecurringEndDate,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, toRideResponse(ride))
}

// GetRide handles GET /v1/rides/:id
func (h *RideHandler) GetRide(c *gin.Context) {
	view, err := h.rideService.GetRide(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	resp := toRideResponse(view.Ride)
	resp.ParticipantCount = &view.Participants
	respondJSON(c, http.StatusOK, resp)
}

// ListRides handles GET /v1/rides
func (h *RideHandler) ListRides(c *gin.Context) {
	limit, err := queryInt(c, "limit")
	if err != nil {
		respondBadRequest(c, "limit must be an integer")
		return
	}
	offset, err := queryInt(c, "offset")
	if err != nil {
		respondBadRequest(c, "offset must be an integer")
		return
	}

	rides, err := h.rideService.ListRides(c.Request.Context(), service.ListRidesRequest{
		Status:     c.Query("status"),
		OwnerID:    c.Query("owner_id"),
		SeriesID:   c.Query("series_id"),
		Difficulty: c.Query("difficulty"),
		From:       c.Query("from"),
		To:         c.Query("to"),
		Limit:      limit,
		Offset:     offset,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	resp := make([]RideResponse, 0, len(rides))
	for _, r := range rides {
		resp = append(resp, toRideResponse(r))
	}
	respondJSON(c, http.StatusOK, resp)
}

// NearbyRides handles GET /v1/rides/nearby
func (h *RideHandler) NearbyRides(c *gin.Context) {
	lat, errLat := strconv.ParseFloat(c.Query("lat"), 64)
	lng, errLng := strconv.ParseFloat(c.Query("lng"), 64)
	if errLat != nil || errLng != nil {
		respondBadRequest(c, "lat and lng are required numbers")
		return
	}

	radius := 25.0
	if raw := c.Query("radius_km"); raw != "" {
		r, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			respondBadRequest(c, "radius_km must be a number")
			return
		}
		radius = r
	}

	limit, err := queryInt(c, "limit")
	if err != nil {
		respondBadRequest(c, "limit must be an integer")
		return
	}

	found, err := h.rideService.FindNearbyRides(c.Request.Context(), lat, lng, radius, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	resp := make([]RideResponse, 0, len(found))
	for _, f := range found {
		r := toRideResponse(f.Ride)
		d := f.DistanceKm
		r.DistanceKm = &d
		resp = append(resp, r)
	}
	respondJSON(c, http.StatusOK, resp)
}

// UpdateRide handles PUT /v1/rides/:id
func (h *RideHandler) UpdateRide(c *gin.Context) {
	var req RideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	scope, ok := parseScope(c)
	if !ok {
		respondBadRequest(c, "scope must be single or series")
		return
	}

	ride, err := h.rideService.UpdateRide(c.Request.Context(), service.UpdateRideRequest{
		RideID:   c.Param("id"),
		Actor:    actor(c),
		Scope:    scope,
		Details:  req.details(),
		DateTime: req.DateTime,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toRideResponse(ride))
}

// DeleteRide handles DELETE /v1/rides/:id
func (h *RideHandler) DeleteRide(c *gin.Context) {
	scope, ok := parseScope(c)
	if !ok {
		respondBadRequest(c, "scope must be single or series")
		return
	}

	n, err := h.rideService.DeleteRide(c.Request.Context(), service.DeleteRideRequest{
		RideID: c.Param("id"),
		Actor:  actor(c),
		Scope:  scope,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, gin.H{"deleted": n})
}

func parseScope(c *gin.Context) (service.Scope, bool) {
	switch s := service.Scope(c.DefaultQuery("scope", string(service.ScopeSingle))); s {
	case service.ScopeSingle, service.ScopeSeries:
		return s, true
	default:
		return "", false
	}
}

func queryInt(c *gin.Context, name string) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}

func actor(c *gin.Context) service.Actor {
	userID, role := middleware.CurrentUser(c)
	return service.Actor{UserID: userID, Role: role}
}
