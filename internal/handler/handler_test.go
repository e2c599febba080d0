package handler

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"groupride/internal/domain"
	"groupride/internal/middleware"
	"groupride/internal/service"
	"groupride/internal/tests"
)

type testEnv struct {
	router       *gin.Engine
	rides        *tests.MockRideRepository
	participants *tests.MockParticipantRepository
}

// withUser simulates the auth middleware from request headers.
func withUser(c *gin.Context) {
	if id := c.GetHeader("X-Test-User"); id != "" {
		c.Set(middleware.UserIDKey, id)
		role := domain.UserRoleMember
		if c.GetHeader("X-Test-Role") == "admin" {
			role = domain.UserRoleAdmin
		}
		c.Set(middleware.RoleKey, role)
	}
	c.Next()
}

func setupTestRouter(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger, _ := test.NewNullLogger()
	rides := tests.NewMockRideRepository()
	participants := tests.NewMockParticipantRepository(rides)
	comments := tests.NewMockCommentRepository()
	users := tests.NewMockUserRepository()

	rideHandler := NewRideHandler(service.NewRideService(rides, participants, nil, nil, logger))
	participantHandler := NewParticipantHandler(service.NewParticipantService(rides, participants, logger))
	commentHandler := NewCommentHandler(service.NewCommentService(rides, comments))
	userHandler := NewUserHandler(service.NewUserService(users))

	r := gin.New()
	r.Use(withUser)
	r.POST("/v1/rides", rideHandler.CreateRide)
	r.GET("/v1/rides", rideHandler.ListRides)
	r.GET("/v1/rides/nearby", rideHandler.NearbyRides)
	r.GET("/v1/rides/:id", rideHandler.GetRide)
	r.PUT("/v1/rides/:id", rideHandler.UpdateRide)
	r.DELETE("/v1/rides/:id", rideHandler.DeleteRide)
	r.POST("/v1/rides/:id/join", participantHandler.Join)
	r.DELETE("/v1/rides/:id/join", participantHandler.Leave)
	r.GET("/v1/rides/:id/participants", participantHandler.List)
	r.POST("/v1/rides/:id/comments", commentHandler.Create)
	r.GET("/v1/rides/:id/comments", commentHandler.List)
	r.DELETE("/v1/comments/:id", commentHandler.Delete)
	r.GET("/v1/users/me", userHandler.GetMe)
	r.PUT("/v1/users/me", userHandler.UpdateMe)
	r.GET("/v1/users/:id", userHandler.GetUser)

	return &testEnv{router: r, rides: rides, participants: participants}
}

func (e *testEnv) do(t *testing.T, method, path, user string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set("X-Test-User", user)
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func validRideBody() map[string]any {
	return map[string]any{
		"title":      "Thursday Night Worlds",
		"distance":   55.2,
		"difficulty": "A",
		"maxRiders":  2,
		"address":    "Velo Cafe",
		"latitude":   51.5,
		"longitude":  -0.12,
		"rideType":   "road",
		"pace":       34,
		"terrain":    "flat",
		"dateTime":   "2025-07-03T18:30:00",
	}
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	return v
}
