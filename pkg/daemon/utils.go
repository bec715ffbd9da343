package daemon

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/charlie0129/vetcalc/pkg/calculator"
	"github.com/charlie0129/vetcalc/pkg/catalog"
)

// Logger is the logrus logger handler
func ginLogger(logger logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		// other handler can change c.Path so:
		path := c.Request.URL.Path
		start := time.Now()
		c.Next()
		stop := time.Since(start)
		latency := int(math.Ceil(float64(stop.Nanoseconds()) / 1000000.0))
		statusCode := c.Writer.Status()
		dataLength := c.Writer.Size()
		if dataLength < 0 {
			dataLength = 0
		}

		entry := logger.WithFields(logrus.Fields{
			"statusCode": statusCode,
			"latency":    latency, // time to process
			"method":     c.Request.Method,
			"path":       path,
			"dataLength": dataLength,
		})

		if len(c.Errors) > 0 {
			msg := c.Errors.ByType(gin.ErrorTypePrivate).String()
			if statusCode >= http.StatusInternalServerError {
				entry.Error(msg)
			} else {
				entry.Warn(msg)
			}
		} else {
			msg := fmt.Sprintf("%s %s %d (%dms)", c.Request.Method, path, statusCode, latency)
			//nolint:gocritic
			if statusCode >= http.StatusInternalServerError {
				entry.Error(msg)
			} else if statusCode >= http.StatusBadRequest {
				entry.Warn(msg)
			} else {
				entry.Debug(msg)
			}
		}
	}
}

// statusFor maps catalog and calculator errors to HTTP status codes.
func statusFor(err error) int {
	var (
		verr *calculator.ValidationError
		ierr *calculator.InputError
		merr *calculator.ImportError
	)
	switch {
	case errors.As(err, &verr), errors.As(err, &ierr), errors.As(err, &merr):
		return http.StatusBadRequest
	case errors.Is(err, catalog.ErrNothingToImport):
		return http.StatusConflict
	case errors.Is(err, catalog.ErrNotFound), errors.Is(err, catalog.ErrNothingToExport):
		return http.StatusNotFound
	case errors.Is(err, catalog.ErrBuiltinImmutable):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// abortWithError writes the error message as a JSON string and records err
// on the context for ginLogger.
func abortWithError(c *gin.Context, status int, err error) {
	c.IndentedJSON(status, err.Error())
	_ = c.AbortWithError(status, err)
}

// warnPersist tells the client a change was applied but not saved.
func warnPersist(c *gin.Context, err error) {
	if err == nil {
		return
	}
	c.Header("Warning", fmt.Sprintf("199 vetcalc %q", err.Error()))
	_ = c.Error(err)
}
