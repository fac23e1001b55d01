package router

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/scheduler-api/internal/middleware"
	"github.com/jwalitptl/scheduler-api/internal/scheduling"
	"github.com/jwalitptl/scheduler-api/pkg/auth"
)

type Handler interface {
	RegisterRoutes(*gin.RouterGroup)
}

type Config struct {
	RequestTimeout   time.Duration
	RateLimitEnabled bool
	RateLimit        rate.Limit
	RateBurst        int
	CORS             middleware.CORSConfig
	MetricsEnabled   bool
	MetricsPath      string
	MetricsNamespace string
	TokenValidator   auth.TokenValidator
}

type Router struct {
	engine  *gin.Engine
	config  Config
	metrics *httpMetrics
}

type httpMetrics struct {
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
}

func NewRouter(config Config, logger zerolog.Logger) *Router {
	gin.SetMode(gin.ReleaseMode)
	registerValidators()

	engine := gin.New()
	r := &Router{
		engine:  engine,
		config:  config,
		metrics: newHTTPMetrics(config.MetricsNamespace),
	}

	engine.Use(
		gin.Recovery(),
		middleware.RequestID(),
		middleware.Logger(logger),
		r.metricsMiddleware(),
		middleware.Timeout(config.RequestTimeout),
		middleware.CORS(config.CORS),
	)

	if config.RateLimitEnabled {
		limiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
			Rate:  config.RateLimit,
			Burst: config.RateBurst,
		})
		engine.Use(limiter.RateLimit())
	}

	return r
}

// Setup mounts health and metrics endpoints plus the API surface. Health and
// metrics stay outside authentication.
func (r *Router) Setup(health Handler, protected ...Handler) {
	api := r.engine.Group("/api/v1")
	api.Use(func(c *gin.Context) {
		c.Header("X-API-Version", "1.0")
		c.Next()
	})

	health.RegisterRoutes(api)
	if r.config.MetricsEnabled {
		r.engine.GET(r.config.MetricsPath, gin.WrapH(promhttp.Handler()))
	}

	group := api.Group("")
	if r.config.TokenValidator != nil {
		group.Use(middleware.Auth(r.config.TokenValidator))
	}
	for _, h := range protected {
		h.RegisterRoutes(group)
	}
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}

// registerValidators installs the dateymd and timehm binding tags used by
// request structs.
func registerValidators() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	_ = v.RegisterValidation("dateymd", func(fl validator.FieldLevel) bool {
		return scheduling.ValidateDate(fl.Field().String()) == nil
	})
	_ = v.RegisterValidation("timehm", func(fl validator.FieldLevel) bool {
		return scheduling.ValidateTime(fl.Field().String()) == nil
	})
}

func newHTTPMetrics(namespace string) *httpMetrics {
	return &httpMetrics{
		requestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "Duration of HTTP requests in seconds",
			},
			[]string{"method", "path", "status"},
		),
		requestTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
	}
}

func (r *Router) metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())
		r.metrics.requestDuration.WithLabelValues(c.Request.Method, path, status).
			Observe(time.Since(start).Seconds())
		r.metrics.requestTotal.WithLabelValues(c.Request.Method, path, status).Inc()
	}
}
