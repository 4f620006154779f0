package echoutil

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
	apierr "github.com/opst/yeastregulatorydb/pkg/api/types/errors"
)

// LogHandlerFunc logs requests and their responses with latency.
func LogHandlerFunc(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		meth := c.Request().Method
		path := c.Request().URL
		BEGIN := time.Now()
		c.Logger().Infof("< request @[%s] %s %s", BEGIN, meth, path)

		err := next(c)

		END := time.Now()
		status := c.Response().Status
		if err != nil {
			status = apierr.FromError(err).Code
		}
		c.Logger().Infof(
			"> response @[%s] status = %d (for request @[%s] %s %s) in %v",
			END, status, BEGIN, meth, path, END.Sub(BEGIN),
		)
		return err
	}
}

// SetLevel sets the level of e.Logger by name: debug, info, warn, error or off.
//
// Unknown names fall back to warn.
func SetLevel(e *echo.Echo, loglevel string) {
	switch strings.ToLower(loglevel) {
	case "debug":
		e.Logger.SetLevel(log.DEBUG)
	case "info":
		e.Logger.SetLevel(log.INFO)
	case "warn", "":
		e.Logger.SetLevel(log.WARN)
	case "error":
		e.Logger.SetLevel(log.ERROR)
	case "off":
		e.Logger.SetLevel(log.OFF)
	default:
		e.Logger.SetLevel(log.WARN)
		e.Logger.Warnf("unknown loglevel: %s . fall-backed to warn", loglevel)
	}
}

// ErrorHandler responds errors returned by handlers as ErrorMessage.
//
// Server errors are logged with their causes.
func ErrorHandler(e *echo.Echo) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		he := apierr.FromError(err)
		if he.Code >= http.StatusInternalServerError {
			c.Logger().Error(err)
		} else {
			c.Logger().Debug(err)
		}
		e.DefaultHTTPErrorHandler(he, c)
	}
}
