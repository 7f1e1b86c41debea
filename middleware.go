package folio

import (
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/eringen/folio/apperr"
	"github.com/eringen/folio/logger"
)

func (a *App) setupMiddleware() {
	e := a.Echo

	e.IPExtractor = echo.ExtractIPFromXFFHeader(
		echo.TrustLoopback(true),
		echo.TrustLinkLocal(false),
		echo.TrustPrivateNet(true),
	)

	e.HTTPErrorHandler = a.httpErrorHandler

	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))

	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogRemoteIP:  true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := logger.Fields{
				"method":     v.Method,
				"uri":        v.URI,
				"status":     v.Status,
				"latency_ms": v.Latency.Milliseconds(),
				"request_id": v.RequestID,
				"remote_ip":  v.RemoteIP,
			}
			if v.Error != nil {
				fields["error"] = v.Error.Error()
			}
			if v.Status >= http.StatusInternalServerError {
				logger.ErrorWithFields("request failed", fields)
			} else {
				logger.InfoWithFields("request", fields)
			}
			return nil
		},
	}))

	e.Use(middleware.Recover())

	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Namespace:  "folio",
		Registerer: a.registry,
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/metrics" || c.Path() == "/health"
		},
	}))

	e.Use(middleware.GzipWithConfig(middleware.GzipConfig{
		Level: 5,
		Skipper: func(c echo.Context) bool {
			path := c.Request().URL.Path
			return path == "/api/image-proxy" || path == "/api/download"
		},
	}))

	e.Use(middleware.SecureWithConfig(middleware.SecureConfig{
		XSSProtection:         "1; mode=block",
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "DENY",
		ReferrerPolicy:        "strict-origin-when-cross-origin",
		ContentSecurityPolicy: "default-src 'none'; img-src 'self' https: data:; frame-ancestors 'none'",
		HSTSMaxAge:            31536000,
		HSTSExcludeSubdomains: false,
	}))

	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodHead},
		Skipper: func(c echo.Context) bool {
			path := c.Request().URL.Path
			return !strings.HasPrefix(path, "/api/") || path == "/api/revalidate"
		},
	}))

	e.Use(cacheControlMiddleware)
}

// cacheControlMiddleware sets a default Cache-Control; handlers may
// override it.
func cacheControlMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		path := c.Request().URL.Path
		h := c.Response().Header()
		switch {
		case path == "/sitemap.xml" || path == "/feed.xml":
			h.Set("Cache-Control", "public, max-age=3600")
		case path == "/api/blogs" || strings.HasPrefix(path, "/api/blogs/"):
			h.Set("Cache-Control", "public, max-age=60, stale-while-revalidate=300")
		default:
			h.Set("Cache-Control", "no-store")
		}
		return next(c)
	}
}

// errorStatus maps an error to the HTTP status reported to callers.
func errorStatus(err error) int {
	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindNetwork:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (a *App) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg, ok := he.Message.(string)
		if !ok {
			msg = http.StatusText(he.Code)
		}
		_ = c.JSON(he.Code, map[string]any{"success": false, "error": msg})
		return
	}

	code := errorStatus(err)
	if code >= http.StatusInternalServerError {
		logger.ErrorWithFields("server error", logger.Fields{
			"path":  c.Request().URL.Path,
			"error": err.Error(),
		})
	}
	_ = c.JSON(code, map[string]any{"success": false, "error": apperr.PublicMessage(apperr.KindOf(err))})
}
