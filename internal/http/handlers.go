package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"txdash/internal/core"
	"txdash/internal/log"
)

const readinessTimeout = 2 * time.Second

type statusBody struct {
	Status string `json:"status"`
}

type initializeBody struct {
	Message  string `json:"message"`
	Inserted int    `json:"inserted"`
	Skipped  int    `json:"skipped"`
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, statusBody{Status: "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	if s.store != nil {
		if err := s.store.Ping(ctx); err != nil {
			log.FromContext(ctx).WarnContext(ctx, "Readiness check failed", log.FieldError, err)
			NewJSONResponse().Status(http.StatusServiceUnavailable).Body(statusBody{Status: "unavailable"}).Write(w)
			return
		}
	}
	writeJSON(w, statusBody{Status: "ok"})
}

func (s *Server) handleInitialize(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	res, err := s.seeder.Initialize(ctx)
	if err != nil {
		s.fail(w, r, err, log.OpInitialize, "Failed to initialize database")
		return
	}

	log.FromContext(ctx).InfoContext(ctx, "Database initialized via API",
		log.NewFields().
			WithOperation(log.OpInitialize).
			WithDataset(res.Source, res.Inserted, res.Skipped).
			ToSlice()...)

	writeJSON(w, initializeBody{
		Message:  "Database initialized successfully",
		Inserted: res.Inserted,
		Skipped:  res.Skipped,
	})
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	q, err := ParseListQuery(r.URL.Query())
	if err != nil {
		s.fail(w, r, err, log.OpList, "Failed to fetch transactions")
		return
	}

	page, err := s.reports.List(r.Context(), q)
	if err != nil {
		s.fail(w, r, err, log.OpList, "Failed to fetch transactions")
		return
	}

	NewJSONResponse().
		Header("X-Total-Count", strconv.FormatInt(page.Total, 10)).
		Body(page.Items).
		Write(w)
}

// monthReport builds a handler for the endpoints that take only the month
// parameter and return one report value.
func monthReport[T any](s *Server, op, failMessage string, fetch func(context.Context, core.Month) (T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		month, err := ParseMonthParam(r.URL.Query())
		if err != nil {
			s.fail(w, r, err, op, failMessage)
			return
		}

		report, err := fetch(r.Context(), month)
		if err != nil {
			s.fail(w, r, err, op, failMessage)
			return
		}
		writeJSON(w, report)
	}
}

// fail maps err to a status and writes a static message; details only go
// to the log.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error, op, message string) {
	ctx := r.Context()
	logger := log.FromContext(ctx)
	fields := log.NewFields().WithOperation(op).WithError(err)

	switch {
	case errors.Is(err, core.ErrInvalidMonth):
		logger.WarnContext(ctx, "Rejected request parameter", fields.ToSlice()...)
		BadRequestError("Invalid month: expected an integer from 1 to 12").Write(w)
	case errors.Is(err, context.DeadlineExceeded):
		logger.ErrorContext(ctx, "Request timed out", fields.ToSlice()...)
		ErrorResponse(http.StatusGatewayTimeout, message).Write(w)
	case errors.Is(err, context.Canceled):
		// The client went away; nobody reads the response.
		logger.InfoContext(ctx, "Request cancelled", fields.ToSlice()...)
	default:
		logger.ErrorContext(ctx, message, fields.ToSlice()...)
		InternalServerError(message).Write(w)
	}
}
