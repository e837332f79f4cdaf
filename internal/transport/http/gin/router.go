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
	"github.com/google/uuid"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/bookit-platform/bookit/internal/domain"
	redisrepo "github.com/bookit-platform/bookit/internal/repository/redis"
	"github.com/bookit-platform/bookit/internal/service"
	"github.com/bookit-platform/bookit/internal/service/booking"
	"github.com/bookit-platform/bookit/internal/service/catalog"
	"github.com/bookit-platform/bookit/internal/service/promo"
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

	api := r.Group("/api")

	// health
	api.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Public API
	api.GET("/experiences", handleListExperiences(svcs))
	api.GET("/experiences/:id", handleGetExperience(svcs))

	api.POST("/bookings", handleCreateBooking(svcs, idem))
	api.GET("/bookings", handleListBookings(svcs))
	api.GET("/bookings/:id", handleGetBooking(svcs))

	api.POST("/promo/validate", handleValidatePromo(svcs))

	// Admin API: unauthenticated seeding and ops hooks, meant to sit
	// behind a private network boundary.
	admin := api.Group("/admin")
	{
		admin.POST("/experiences", handleCreateExperience(svcs))
		admin.POST("/experiences/:id/slots", handleCreateSlots(svcs))
		admin.GET("/slots/:id/bookings", handleListSlotBookings(svcs))
	}

	return r
}

// --- Handlers with Swagger annotations ---

// @Summary  List experiences
// @Success  200  {array}  domain.Experience
// @Router   /api/experiences [get]
func handleListExperiences(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		out, err := svcs.Catalog.ListExperiences(c.Request.Context())
		if err != nil {
			respondErr(c, err)
			return
		}
		// ETag + Cache-Control 60s
		writeJSONWithCache(c, http.StatusOK, out, "public, max-age=60", true)
	}
}

// @Summary  Get experience with bookable slots
// @Param    id  path  int  true  "Experience ID"
// @Success  200  {object}  domain.ExperienceWithSlots
// @Failure  404  {object}  ErrorResponse
// @Router   /api/experiences/{id} [get]
func handleGetExperience(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		out, err := svcs.Catalog.GetExperience(c.Request.Context(), id)
		if err != nil {
			respondErr(c, err)
			return
		}
		// availability changes under contention, keep the cache short
		writeJSONWithCache(c, http.StatusOK, out, "public, max-age=15", true)
	}
}

// @Summary  Create booking (idempotent)
// @Param    req body  CreateBookingRequest true "payload"
// @Header   201 {string} Idempotency-Key "echo"
// @Success  201 {object} domain.BookingWithDetails
// @Failure  400 {object} ErrorResponse "validation failure / not enough spots"
// @Failure  404 {object} ErrorResponse "slot not found"
// @Failure  409 {object} ErrorResponse "idempotency key in progress"
// @Failure  429 {object} ErrorResponse "rate limited"
// @Failure  500 {object} ErrorResponse "reservation failed"
// @Router   /api/bookings [post]
func handleCreateBooking(
	svcs *service.Services,
	idem *redisrepo.IdempotencyStore,
) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateBookingRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		idemKey := strings.TrimSpace(c.GetHeader("Idempotency-Key"))
		var idemStorageKey string
		if idem != nil && idemKey != "" {
			idemStorageKey = redisrepo.KeyIdemBooking(req.SlotID, idemKey)

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

		out, err := svcs.Booking.Reserve(c.Request.Context(), booking.ReserveParams{
			ExperienceID: req.ExperienceID,
			SlotID:       req.SlotID,
			Customer: domain.Customer{
				Name:  req.CustomerName,
				Email: req.CustomerEmail,
				Phone: req.CustomerPhone,
			},
			Guests:       req.Guests,
			PromoCode:    req.PromoCode,
			Discount:     req.Discount,
			TotalPrice:   req.TotalPrice,
			RateLimitKey: "ip:" + c.ClientIP(),
		})
		if err != nil {
			if idemStorageKey != "" && idem != nil {
				_ = idem.Release(c.Request.Context(), idemStorageKey)
			}
			if errors.Is(err, booking.ErrRateLimited) {
				c.Header("Retry-After", "60")
				c.JSON(
					http.StatusTooManyRequests,
					ErrorResponse{Error: "rate limited"},
				)
				return
			}
			respondErr(c, err)
			return
		}

		if idemStorageKey != "" && idem != nil {
			b, _ := json.Marshal(out)
			_ = idem.SaveResult(c.Request.Context(), idemStorageKey, string(b))
			c.Header("Idempotency-Key", idemKey)
		}

		c.JSON(http.StatusCreated, out)
	}
}

// @Summary  Get booking with experience and slot
// @Param    id  path  string  true  "Booking ID (uuid)"
// @Success  200 {object} domain.BookingWithDetails
// @Failure  404 {object} ErrorResponse
// @Router   /api/bookings/{id} [get]
func handleGetBooking(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := uuid.Parse(c.Param("id"))
		if err != nil {
			badRequest(c, "invalid booking id")
			return
		}
		out, err := svcs.Booking.GetBooking(c.Request.Context(), id)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, out)
	}
}

// @Summary  List bookings by customer email
// @Param    email  query  string  true  "Customer email"
// @Success  200 {array} domain.Booking
// @Router   /api/bookings [get]
func handleListBookings(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		out, err := svcs.Booking.ListBookings(c.Request.Context(), c.Query("email"))
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, out)
	}
}

// @Summary  Validate promo code
// @Param    req body  ValidatePromoRequest true "payload"
// @Success  200 {object} domain.Discount
// @Failure  404 {object} ErrorResponse "unknown code"
// @Router   /api/promo/validate [post]
func handleValidatePromo(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ValidatePromoRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		out, err := svcs.Promo.Validate(c.Request.Context(), req.Code, req.Subtotal)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"valid":    true,
			"code":     out.Code,
			"discount": out.Amount,
			"type":     out.Type,
			"value":    out.Value,
		})
	}
}

// @Summary  List bookings taken against a slot
// @Param    id  path  int  true  "Slot ID"
// @Success  200 {array} domain.Booking
// @Failure  404 {object} ErrorResponse "slot not found"
// @Router   /api/admin/slots/{id}/bookings [get]
func handleListSlotBookings(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		slotID, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		out, err := svcs.Booking.ListSlotBookings(c.Request.Context(), slotID)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, out)
	}
}

// @Summary  Create experience
// @Param    req body  CreateExperienceRequest true "payload"
// @Success  201 {object} CreateExperienceResponse
// @Router   /api/admin/experiences [post]
func handleCreateExperience(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateExperienceRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		id, err := svcs.Catalog.CreateExperience(c.Request.Context(), &domain.Experience{
			Title:       req.Title,
			Description: req.Description,
			Location:    req.Location,
			Duration:    req.Duration,
			Price:       req.Price,
			Images:      req.Images,
			Rating:      req.Rating,
			Reviews:     req.Reviews,
			Category:    req.Category,
			Highlights:  req.Highlights,
			Included:    req.Included,
			NotIncluded: req.NotIncluded,
		})
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusCreated, CreateExperienceResponse{ExperienceID: id})
	}
}

// @Summary  Batch create slots for an experience
// @Param    id  path  int  true  "Experience ID"
// @Param    req body  CreateSlotsRequest true "payload"
// @Success  201 {object} map[string]int
// @Router   /api/admin/experiences/{id}/slots [post]
func handleCreateSlots(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		experienceID, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		var req CreateSlotsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		var slots []domain.Slot
		for _, in := range req.Slots {
			date, err := parseDate(in.Date)
			if err != nil {
				badRequest(c, "invalid date (YYYY-MM-DD)")
				return
			}
			slots = append(slots, domain.Slot{
				ExperienceID:   experienceID,
				Date:           date,
				Time:           in.Time,
				AvailableSpots: in.AvailableSpots,
				TotalSpots:     in.TotalSpots,
			})
		}
		if err := svcs.Catalog.CreateSlots(
			c.Request.Context(),
			experienceID,
			slots,
		); err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"created": len(slots)})
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

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg})
}

func respondErr(c *gin.Context, err error) {
	if err == nil {
		c.Status(http.StatusNoContent)
		return
	}

	switch {
	// booking service
	case errors.Is(err, booking.ErrInvalidRequest):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request"})
		return
	case errors.Is(err, booking.ErrInsufficientCapacity):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "not enough available spots"})
		return
	case errors.Is(err, booking.ErrSlotNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "slot not found"})
		return
	case errors.Is(err, booking.ErrBookingNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "booking not found"})
		return
	case errors.Is(err, booking.ErrReservationFailed):
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to create booking"})
		return
	// catalog service
	case errors.Is(err, catalog.ErrExperienceNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "experience not found"})
		return
	case errors.Is(err, catalog.ErrInvalidSlot):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid slot"})
		return
	// promo service
	case errors.Is(err, promo.ErrCodeRequired):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "promo code is required"})
		return
	case errors.Is(err, promo.ErrCodeNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "invalid promo code"})
		return
	}

	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
}
