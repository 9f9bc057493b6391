package api

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"taskboard/board-api/domain"
)

const requestBodyMaxSize = 16 << 10

var errBodyTooLarge = errors.New("request body too large")

// Register wires up all API routes on the provided Echo instance. Board and
// task resources are served both at the root and under /api.
func Register(e *echo.Echo, store Storage, logger *log.Logger) {
	for _, prefix := range []string{"", "/api"} {
		mw := []echo.MiddlewareFunc{RequestMetrics(logger), RequireJSON()}

		e.POST(prefix+"/boards", createBoard(store, logger), mw...)
		e.GET(prefix+"/boards/:id", getBoard(store, logger), mw...)
		e.PUT(prefix+"/boards/:id", updateBoard(store, logger), mw...)
		e.DELETE(prefix+"/boards/:id", deleteBoard(store, logger), mw...)

		e.GET(prefix+"/tasks", listTasks(store, logger), mw...)
		e.POST(prefix+"/tasks", createTask(store, logger), mw...)
		e.GET(prefix+"/tasks/:id", getTask(store, logger), mw...)
		e.PUT(prefix+"/tasks/:id", updateTask(store, logger), mw...)
		e.DELETE(prefix+"/tasks/:id", deleteTask(store, logger), mw...)
	}
	e.GET("/healthz", healthz(store))
}

// pinger is implemented by stores that can report their own connectivity.
type pinger interface {
	Ping(ctx context.Context) error
}

func healthz(store Storage) echo.HandlerFunc {
	return func(c echo.Context) error {
		p, ok := store.(pinger)
		if !ok {
			return c.NoContent(http.StatusOK)
		}
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		if err := p.Ping(ctx); err != nil {
			return c.JSON(http.StatusServiceUnavailable, errorResponse{Error: "store unavailable"})
		}
		return c.NoContent(http.StatusOK)
	}
}

// decodeBody reads a JSON object into v. An empty body leaves v untouched.
func decodeBody(c echo.Context, v any) error {
	data, err := io.ReadAll(io.LimitReader(c.Request().Body, requestBodyMaxSize+1))
	if err != nil {
		return err
	}
	if len(data) > requestBodyMaxSize {
		return errBodyTooLarge
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	dec := sonic.ConfigStd.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func fail(c echo.Context, status int, msg string) error {
	return c.JSON(status, errorResponse{Error: msg})
}

// failStore logs the underlying store error and answers with a generic message.
func failStore(c echo.Context, logger *log.Logger, op string, err error, msg string) error {
	metricsFrom(c).SetErrorStage("storage")
	storeFailures.WithLabelValues(op).Inc()
	logger.WithError(err).WithFields(log.Fields{
		"op":    op,
		"route": c.Path(),
	}).Error("store operation failed")
	return fail(c, http.StatusInternalServerError, msg)
}

func failValidation(c echo.Context, err error) error {
	metricsFrom(c).SetErrorStage("validation")
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		return fail(c, http.StatusBadRequest, ve.Message)
	}
	return fail(c, http.StatusBadRequest, "Invalid request body")
}

// timed runs a store call and records its duration on the request metrics.
func timed(c echo.Context, fn func(ctx context.Context) error) error {
	start := time.Now()
	err := fn(c.Request().Context())
	metricsFrom(c).ObserveStore(time.Since(start))
	return err
}
