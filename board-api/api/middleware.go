package api

import (
	"mime"
	"net/http"

	"github.com/labstack/echo/v4"
)

// RequireJSON rejects requests that carry a body in anything other than
// application/json with a 415 response. Bodyless requests pass through
// regardless of their Content-Type.
func RequireJSON() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if !hasBody(req) {
				return next(c)
			}
			if !isJSONContentType(req.Header.Get(echo.HeaderContentType)) {
				return echo.NewHTTPError(http.StatusUnsupportedMediaType, "Content-Type must be application/json")
			}
			return next(c)
		}
	}
}

func hasBody(req *http.Request) bool {
	if req.Body == nil || req.Body == http.NoBody {
		return false
	}
	// -1 means unknown length, as with chunked uploads.
	return req.ContentLength != 0
}

func isJSONContentType(header string) bool {
	if header == "" {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(header)
	if err != nil {
		return false
	}
	return mediaType == echo.MIMEApplicationJSON
}
