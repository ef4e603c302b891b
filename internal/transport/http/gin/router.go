package httpgin

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/velychko/bookgo/internal/domain"
	redisrepo "github.com/velychko/bookgo/internal/repository/redis"
	"github.com/velychko/bookgo/internal/service"
	"github.com/velychko/bookgo/internal/service/admin"
	"github.com/velychko/bookgo/internal/service/leaderboard"
	"github.com/velychko/bookgo/internal/service/query"
	"github.com/velychko/bookgo/internal/service/reservation"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func NewRouter(
	svcs *service.Services,
	idem *redisrepo.IdempotencyStore,
	logger *slog.Logger,
	middlewares ...gin.HandlerFunc,
) *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery(), LoggingMiddleware(logger), RequestIDMiddleware(), CORS())
	for _, m := range middlewares {
		if m != nil {
			r.Use(m)
		}
	}

	// Swagger UI
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// health
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Bookings API
	bookings := r.Group("/api/bookings")
	{
		bookings.POST("/reserve", handleReserve(svcs, idem))
		bookings.GET("", handleListBookings(svcs))
		bookings.GET("/user", handleListBookingsByUser(svcs))
		bookings.GET("/event/:event_id", handleListBookingsByEvent(svcs))
		bookings.GET("/top-users", handleTopUsers(svcs))
		bookings.GET("/:id", handleGetBooking(svcs))
	}

	// Events API
	r.POST("/events", handleCreateEvent(svcs))
	r.GET("/events", handleListEvents(svcs))
	r.GET("/events/:id", handleGetEvent(svcs))
	r.PATCH("/events/:id", handleUpdateEvent(svcs))
	r.DELETE("/events/:id", handleDeleteEvent(svcs))
	r.GET("/events/:id/availability", handleGetAvailability(svcs))

	return r
}

// --- Handlers with Swagger annotations ---

// @Summary  Reserve a seat (idempotent)
// @Param    req body  ReserveRequest true "payload"
// @Header   201 {string} Idempotency-Key "echo"
// @Success  201 {object} domain.Booking
// @Failure  400 {object} ErrorResponse "no seats left / bad payload"
// @Failure  404 {object} ErrorResponse "event not found"
// @Failure  409 {object} ErrorResponse "duplicate booking / idem in progress"
// @Failure  429 {object} ErrorResponse "rate limited"
// @Failure  503 {object} ErrorResponse "lock wait timeout, retryable"
// @Router   /api/bookings/reserve [post]
func handleReserve(
	svcs *service.Services,
	idem *redisrepo.IdempotencyStore,
) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ReserveRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		idemKey := strings.TrimSpace(c.GetHeader("Idempotency-Key"))
		var idemStorageKey string
		if idem != nil && idemKey != "" {
			idemStorageKey = redisrepo.KeyIdemReserve(req.EventID, idemKey)

			if payload, ok, _ := idem.GetResult(
				c.Request.Context(),
				idemStorageKey,
			); ok {
				c.Header("Idempotency-Key", idemKey)
				c.Data(
					http.StatusCreated,
					"application/json; charset=utf-8",
					[]byte(payload),
				)
				return
			}

			locked, err := idem.AcquireLock(
				c.Request.Context(),
				idemStorageKey,
				60*time.Second,
			)
			if err != nil {
				respondErr(c, err)
				return
			}
			if !locked {
				if payload, ok, _ := idem.GetResult(
					c.Request.Context(),
					idemStorageKey,
				); ok {
					c.Header("Idempotency-Key", idemKey)
					c.Data(
						http.StatusCreated,
						"application/json; charset=utf-8",
						[]byte(payload),
					)
					return
				}
				c.Header("Retry-After", "1")
				c.JSON(
					http.StatusConflict,
					ErrorResponse{Error: "idempotency key in progress"},
				)
				return
			}
		}

		rlKey := "ip:" + c.ClientIP()

		b, err := svcs.Reservation.Reserve(
			c.Request.Context(),
			req.EventID,
			req.UserID,
			rlKey,
		)
		if err != nil {
			if idemStorageKey != "" && idem != nil {
				_ = idem.Release(c.Request.Context(), idemStorageKey)
			}
			if errors.Is(err, reservation.ErrRateLimited) {
				c.Header("Retry-After", "60")
				c.JSON(
					http.StatusTooManyRequests,
					ErrorResponse{Error: err.Error()},
				)
				return
			}
			respondErr(c, err)
			return
		}

		if idemStorageKey != "" && idem != nil {
			payload, _ := json.Marshal(b)
			_ = idem.SaveResult(c.Request.Context(), idemStorageKey, string(payload))
			c.Header("Idempotency-Key", idemKey)
		}

		c.JSON(http.StatusCreated, b)
	}
}

// @Summary  List all bookings
// @Success  200 {array} domain.BookingWithEvent
// @Router   /api/bookings [get]
func handleListBookings(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		out, err := svcs.Reservation.ListBookings(c.Request.Context())
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, out)
	}
}

// @Summary  List a user's bookings
// @Param    user_id  query  string  true  "User ID"
// @Success  200 {array} domain.BookingWithEvent
// @Router   /api/bookings/user [get]
func handleListBookingsByUser(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.Query("user_id")
		if userID == "" {
			badRequest(c, "missing user_id")
			return
		}
		out, err := svcs.Reservation.ListByUser(c.Request.Context(), userID)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, out)
	}
}

// @Summary  List an event's bookings
// @Param    event_id  path  int  true  "Event ID"
// @Success  200 {array} domain.BookingWithEvent
// @Router   /api/bookings/event/{event_id} [get]
func handleListBookingsByEvent(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		eventID, ok := parseInt64Param(c, "event_id")
		if !ok {
			return
		}
		out, err := svcs.Reservation.ListByEvent(c.Request.Context(), eventID)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, out)
	}
}

// @Summary  Top users by booking count over a window
// @Param    period  query  string  true   "day | week | month"
// @Param    year    query  int     true   "year"
// @Param    month   query  int     true   "month"
// @Param    day     query  int     false  "day (required for day/week)"
// @Success  200 {array}  domain.LeaderboardEntry
// @Failure  400 {object} ErrorResponse
// @Router   /api/bookings/top-users [get]
func handleTopUsers(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		period := domain.Period(c.Query("period"))
		year := parseIntDefault(c.Query("year"), 0)
		month := parseIntDefault(c.Query("month"), 0)
		day := parseIntDefault(c.Query("day"), 0)

		out, err := svcs.Leaderboard.TopUsers(c.Request.Context(), period, year, month, day)
		if err != nil {
			respondErr(c, err)
			return
		}
		// ETag + Cache-Control 30s
		writeJSONWithCache(c, http.StatusOK, out, "public, max-age=30", true)
	}
}

// @Summary  Get booking by id
// @Param    id  path  int  true  "Booking ID"
// @Success  200 {object} domain.BookingWithEvent
// @Failure  404 {object} ErrorResponse
// @Router   /api/bookings/{id} [get]
func handleGetBooking(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		bw, err := svcs.Reservation.GetBooking(c.Request.Context(), id)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, bw)
	}
}

// @Summary  Create event
// @Param    req body  CreateEventRequest true "payload"
// @Success  201 {object} domain.Event
// @Router   /events [post]
func handleCreateEvent(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateEventRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		e, err := svcs.Admin.CreateEvent(c.Request.Context(), req.Name, *req.TotalSeats)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusCreated, e)
	}
}

// @Summary  List events
// @Success  200 {array} domain.Event
// @Router   /events [get]
func handleListEvents(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		out, err := svcs.Query.ListEvents(c.Request.Context())
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, out)
	}
}

// @Summary  Get event
// @Param    id  path  int  true  "Event ID"
// @Success  200 {object} domain.Event
// @Failure  404 {object} ErrorResponse
// @Router   /events/{id} [get]
func handleGetEvent(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		eventID, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		e, err := svcs.Query.GetEvent(c.Request.Context(), eventID)
		if err != nil {
			respondErr(c, err)
			return
		}
		// ETag + Cache-Control 60s
		writeJSONWithCache(c, http.StatusOK, e, "public, max-age=60", true)
	}
}

// @Summary  Update event
// @Param    id   path  int                true  "Event ID"
// @Param    req  body  UpdateEventRequest true  "payload"
// @Success  200 {object} domain.Event
// @Failure  404 {object} ErrorResponse
// @Router   /events/{id} [patch]
func handleUpdateEvent(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		eventID, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		var req UpdateEventRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		e, err := svcs.Admin.UpdateEvent(c.Request.Context(), eventID, req.Name, req.TotalSeats)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, e)
	}
}

// @Summary  Delete event (cascades to its bookings)
// @Param    id  path  int  true  "Event ID"
// @Success  204
// @Failure  404 {object} ErrorResponse
// @Router   /events/{id} [delete]
func handleDeleteEvent(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		eventID, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		if err := svcs.Admin.DeleteEvent(c.Request.Context(), eventID); err != nil {
			respondErr(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// @Summary  Get seat availability
// @Param    id  path  int  true  "Event ID"
// @Success  200 {object} domain.EventAvailability
// @Failure  404 {object} ErrorResponse
// @Router   /events/{id}/availability [get]
func handleGetAvailability(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		eventID, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		av, err := svcs.Query.Availability(c.Request.Context(), eventID)
		if err != nil {
			respondErr(c, err)
			return
		}
		// ETag + Cache-Control 15s
		writeJSONWithCache(c, http.StatusOK, av, "public, max-age=15", true)
	}
}

// --- Helpers ---

func parseInt64Param(c *gin.Context, name string) (int64, bool) {
	s := c.Param(name)
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return v, true
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg})
}

func respondErr(c *gin.Context, err error) {
	if err == nil {
		c.Status(http.StatusNoContent)
		return
	}

	switch {
	// reservation service
	case errors.Is(err, reservation.ErrEventNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "event not found"})
		return
	case errors.Is(err, reservation.ErrBookingNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "booking not found"})
		return
	case errors.Is(err, reservation.ErrDuplicateBooking):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "user has already booked a seat for this event"})
		return
	case errors.Is(err, reservation.ErrNoSeatsLeft):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "no seats left"})
		return
	case errors.Is(err, reservation.ErrLockTimeout):
		c.Header("Retry-After", "1")
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "try again"})
		return
	// leaderboard service
	case errors.Is(err, leaderboard.ErrInvalidPeriod):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "unknown period"})
		return
	case errors.Is(err, leaderboard.ErrInvalidDate):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "missing or invalid date component"})
		return
	// query service
	case errors.Is(err, query.ErrEventNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "event not found"})
		return
	// admin service
	case errors.Is(err, admin.ErrEventNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "event not found"})
		return
	}

	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
}
