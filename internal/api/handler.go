package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"marketplace-service/internal/models"
	"marketplace-service/internal/reservation"
	"marketplace-service/internal/service"
	"marketplace-service/internal/session"
	"marketplace-service/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// StoreFinder resolves locations and ranks stores around them
type StoreFinder interface {
	Locate(ctx context.Context, q service.LocationQuery) (*models.Location, error)
	Nearby(ctx context.Context, origin models.Coordinate) ([]models.Seller, error)
	Sorted(ctx context.Context, origin models.Coordinate) ([]models.Seller, error)
}

// Reservations is the customer side of the reservation lifecycle
type Reservations interface {
	Create(ctx context.Context, req *service.CreateReservationRequest) (*models.Reservation, error)
	List(ctx context.Context, filter models.ReservationFilter) ([]models.Reservation, error)
	Stats(reservations []models.Reservation) models.ReservationStats
	Views(reservations []models.Reservation) []reservation.View
}

// AdminPanel is the operator view over all reservations
type AdminPanel interface {
	Refresh(ctx context.Context) error
	Snapshot() ([]models.Reservation, time.Time)
	Filtered(status models.ReservationStatus) ([]models.Reservation, time.Time)
	Transition(ctx context.Context, req *service.TransitionRequest) (*models.Reservation, error)
}

// AuditTrail reads recorded reservation events
type AuditTrail interface {
	ListReservationEvents(ctx context.Context, reservationID string) ([]models.ReservationEventRecord, error)
}

// Sessions binds bearer tokens to signed-in users
type Sessions interface {
	SignIn(ctx context.Context, idToken string) (*session.Session, error)
	Lookup(token string) (*session.Session, error)
	SignOut(token string) error
}

// ReadinessCheck reports whether a dependency is reachable
type ReadinessCheck func(ctx context.Context) error

// Handler contains HTTP handlers
type Handler struct {
	stores       StoreFinder
	reservations Reservations
	board        AdminPanel
	audit        AuditTrail
	sessions     Sessions
	checks       map[string]ReadinessCheck
	logger       *zap.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(
	stores StoreFinder,
	reservations Reservations,
	board AdminPanel,
	audit AuditTrail,
	sessions Sessions,
) *Handler {
	return &Handler{
		stores:       stores,
		reservations: reservations,
		board:        board,
		audit:        audit,
		sessions:     sessions,
		checks:       make(map[string]ReadinessCheck),
		logger:       util.ComponentLogger("http"),
	}
}

// AddReadinessCheck registers a dependency pinged by /ready
func (h *Handler) AddReadinessCheck(name string, check ReadinessCheck) {
	h.checks[name] = check
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(requestLogger(h.logger))

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.POST("/sessions", h.signIn)
		v1.DELETE("/sessions", h.signOut)

		signedIn := v1.Group("", h.requireSession())
		{
			signedIn.GET("/locations/current", h.currentLocation)
			signedIn.GET("/locations/cities/:name", h.cityLocation)
			signedIn.GET("/stores/nearby", h.nearbyStores)
			signedIn.GET("/stores", h.sortedStores)

			signedIn.POST("/reservations", h.createReservation)
			signedIn.GET("/reservations/mine", h.myReservations)
		}

		admin := v1.Group("/admin", h.requireSession(), h.requireAdmin())
		{
			admin.GET("/reservations", h.listReservations)
			admin.GET("/reservations/stats", h.reservationStats)
			admin.GET("/reservations/:id/events", h.reservationEvents)
			admin.PATCH("/reservations/:id/status", h.transitionReservation)
		}
	}
}

// NewMetricsServer serves only /metrics, for scraping on a port separate
// from the API
func NewMetricsServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck reports ready only when every registered dependency answers
func (h *Handler) readinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	failed := gin.H{}
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			failed[name] = err.Error()
		}
	}

	if len(failed) > 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"failed": failed,
			"time":   time.Now().Unix(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		logger.Info("Request handled",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()))
	}
}
