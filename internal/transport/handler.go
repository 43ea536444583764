package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"go-histopath/internal/config"
	apperrors "go-histopath/internal/errors"
	"go-histopath/internal/logger"
	"go-histopath/internal/observer"
	"go-histopath/internal/service"
	"go-histopath/pkg/models"
)

// NewHandler wires the HTTP surface: health, metrics and the two grading
// endpoints.
func NewHandler(gradingService service.GradingService, metrics *observer.MetricsObserver, cfg *config.Config) http.Handler {
	r := gin.Default()

	// Add middleware
	r.Use(
		requestSizeLimiter(cfg.MaxRequestBodySize),
		errorHandler(),
	)

	// Configure routes
	r.GET("/health", healthCheck)
	r.GET("/metrics", metricsReport(metrics))
	r.POST("/grade", gradeSlide(gradingService, cfg))
	r.POST("/grade/detailed", gradeSlideDetailed(gradingService, cfg))

	return r
}

func gradeSlide(s service.GradingService, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()
		ctx, cancel := context.WithTimeout(c.Request.Context(), cfg.GradingTimeout)
		defer cancel()

		logger.WithFields(logrus.Fields{
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"user_agent": c.Request.UserAgent(),
			"ip":         c.ClientIP(),
		}).Info("Processing slide grading request")

		var req models.GradeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			logger.WithError(err).WithFields(logrus.Fields{
				"ip": c.ClientIP(),
			}).Error("Invalid request format")
			respondError(c, http.StatusBadRequest, "invalid request format", err)
			return
		}

		report, err := s.GradeSlide(ctx, req)
		if err != nil {
			respondGradingError(c, req.URL, err)
			return
		}

		logger.WithFields(logrus.Fields{
			"url":                req.URL,
			"profile":            report.Profile,
			"grade":              report.Grade,
			"overall_score":      report.OverallScore,
			"region_count":       report.Segmentation.RegionCount,
			"processing_time_ms": time.Since(startTime).Milliseconds(),
		}).Info("Slide grading completed successfully")

		c.JSON(http.StatusOK, report)
	}
}

func gradeSlideDetailed(s service.GradingService, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()
		ctx, cancel := context.WithTimeout(c.Request.Context(), cfg.GradingTimeout)
		defer cancel()

		logger.WithFields(logrus.Fields{
			"method": c.Request.Method,
			"path":   c.Request.URL.Path,
			"ip":     c.ClientIP(),
		}).Info("Processing detailed slide grading request")

		var req models.DetailedGradeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			logger.WithError(err).WithFields(logrus.Fields{
				"ip": c.ClientIP(),
			}).Error("Invalid request format")
			respondError(c, http.StatusBadRequest, "invalid request format", err)
			return
		}

		report, err := s.GradeSlideDetailed(ctx, req)
		if err != nil {
			respondGradingError(c, req.URL, err)
			return
		}

		logger.WithFields(logrus.Fields{
			"url":                req.URL,
			"profile":            report.Profile,
			"grade":              report.Grade,
			"regions_reported":   len(report.Regions),
			"overlay_included":   report.Overlay != nil,
			"processing_time_ms": time.Since(startTime).Milliseconds(),
		}).Info("Detailed slide grading completed successfully")

		c.JSON(http.StatusOK, report)
	}
}

func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "available",
		"version": "1.0.0",
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

func metricsReport(metrics *observer.MetricsObserver) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, metrics.GetMetrics())
	}
}

// Middleware and helper functions
func requestSizeLimiter(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

func errorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 {
			err := c.Errors.Last()
			respondError(c, determineStatusCode(err), "request processing failed", err)
		}
	}
}

func determineStatusCode(err error) int {
	// Check for a custom app error first, unwrapping gin's middleware
	// wrapper and any fmt.Errorf chain along the way.
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}

	// Fallback to context-based errors
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// respondGradingError maps service failures onto the error taxonomy,
// surfacing per-field override issues when a profile was rejected.
func respondGradingError(c *gin.Context, slideURL string, err error) {
	if errors.Is(err, context.DeadlineExceeded) {
		err = apperrors.NewTimeoutError("slide grading timeout", err)
	}
	code := determineStatusCode(err)

	logger.WithError(err).WithFields(logrus.Fields{
		"url":         slideURL,
		"status_code": code,
		"ip":          c.ClientIP(),
	}).Error("Slide grading failed")

	response := models.ErrorResponse{
		Error:   http.StatusText(code),
		Message: err.Error(),
	}
	var pve *service.ProfileValidationError
	if errors.As(err, &pve) {
		response.Issues = pve.Issues
	}
	c.AbortWithStatusJSON(code, response)
}

func respondError(c *gin.Context, code int, message string, err error) {
	// Log the error with context
	logger.WithError(err).WithFields(logrus.Fields{
		"status_code": code,
		"message":     message,
		"path":        c.Request.URL.Path,
		"method":      c.Request.Method,
		"ip":          c.ClientIP(),
	}).Error("Request failed")

	c.AbortWithStatusJSON(code, models.ErrorResponse{
		Error:   http.StatusText(code),
		Message: fmt.Sprintf("%s: %v", message, err),
	})
}
