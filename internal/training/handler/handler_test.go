package handler_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	"idscore/internal/analytics"
	"idscore/internal/artifact"
	artifactstore "idscore/internal/artifact/store"
	"idscore/internal/training/handler"
	"idscore/internal/training/models"
	"idscore/internal/training/service"
	"idscore/internal/training/store/history"
	"idscore/internal/training/store/lock"
	"idscore/pkg/testutil"
	"idscore/pkg/testutil/observations"
)

var now = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

type HandlerSuite struct {
	suite.Suite
	source *analytics.InMemorySource
	locker *lock.InMemoryLocker
	router http.Handler
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.source = analytics.NewInMemory()
	s.locker = lock.NewInMemory()
	registry, err := artifact.NewRegistry(artifactstore.NewInMemory(), artifact.WithLogger(logger))
	s.Require().NoError(err)

	svc, err := service.New(s.source, s.locker, history.NewInMemory(20), registry,
		service.WithLogger(logger),
		service.WithClock(func() time.Time { return now }),
		service.WithSeed(11),
	)
	s.Require().NoError(err)

	r := chi.NewRouter()
	handler.New(svc, logger).Register(r)
	s.router = r
}

func (s *HandlerSuite) do(method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	var decoded map[string]any
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &decoded), rec.Body.String())
	return rec, decoded
}

func (s *HandlerSuite) TestRunDeploysAndRecordsHistory() {
	s.source.AddObservations(observations.Fraud(testutil.FraudLocalParts(150, 21), now)...)
	s.source.AddObservations(observations.Legit(testutil.LegitLocalParts(850, 22), now)...)

	rec, body := s.do(http.MethodPost, "/admin/training/run", "")
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	s.Equal(true, body["success"])
	s.Equal(string(models.ActionDeployed), body["action"])
	s.NotEmpty(body["version"])
	s.Contains(body, "validation")

	rec, body = s.do(http.MethodGet, "/admin/training/history?limit=5", "")
	s.Require().Equal(http.StatusOK, rec.Code)
	entries, ok := body["entries"].([]any)
	s.Require().True(ok)
	s.Len(entries, 1)
}

func (s *HandlerSuite) TestRefusalIsUnprocessable() {
	rec, body := s.do(http.MethodPost, "/admin/training/run", `{"lookback_days":3}`)
	s.Equal(http.StatusUnprocessableEntity, rec.Code)
	s.Equal(false, body["success"])
	s.Equal(string(models.ReasonInsufficientData), body["reason"])
	s.Equal(true, body["retryable"])
	s.Equal(string(models.StateUnlocked), body["state"])
	s.Equal(string(models.StateFetching), body["failed_at"])
}

func (s *HandlerSuite) TestRunWhileLockedConflicts() {
	_, err := s.locker.Acquire(context.Background(), time.Minute)
	s.Require().NoError(err)

	rec, body := s.do(http.MethodPost, "/admin/training/run", `{}`)
	s.Equal(http.StatusConflict, rec.Code)
	s.Equal(string(models.ReasonAlreadyInProgress), body["reason"])
}

func (s *HandlerSuite) TestInvalidRequests() {
	rec, body := s.do(http.MethodPost, "/admin/training/run", `{"lookback_days":365}`)
	s.Equal(http.StatusBadRequest, rec.Code)
	s.Equal("validation_error", body["error"])

	rec, body = s.do(http.MethodGet, "/admin/training/history?limit=abc", "")
	s.Equal(http.StatusBadRequest, rec.Code)
	s.Equal("validation_error", body["error"])
}

func (s *HandlerSuite) TestEmptyHistory() {
	rec, body := s.do(http.MethodGet, "/admin/training/history", "")
	s.Equal(http.StatusOK, rec.Code)
	s.Equal([]any{}, body["entries"])
}
