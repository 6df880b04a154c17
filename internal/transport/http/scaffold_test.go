package httptransport_test

import (
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"idscore/internal/analytics"
	"idscore/internal/artifact"
	artifactstore "idscore/internal/artifact/store"
	experimenthandler "idscore/internal/experiment/handler"
	experimentservice "idscore/internal/experiment/service"
	experimentstore "idscore/internal/experiment/store"
	scoringhandler "idscore/internal/scoring/handler"
	scoringservice "idscore/internal/scoring/service"
	traininghandler "idscore/internal/training/handler"
	trainingservice "idscore/internal/training/service"
	"idscore/internal/training/store/history"
	"idscore/internal/training/store/lock"
	httptransport "idscore/internal/transport/http"
	"idscore/pkg/testutil"
)

func newFullRouter(t *testing.T) http.Handler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	source := analytics.NewInMemory()
	registry, err := artifact.NewRegistry(artifactstore.NewInMemory(), artifact.WithLogger(logger))
	require.NoError(t, err)
	experiments := experimentstore.NewInMemory(10)

	governor, err := experimentservice.New(experiments, registry, source, experimentservice.WithLogger(logger))
	require.NoError(t, err)
	trainer, err := trainingservice.New(source, lock.NewInMemory(), history.NewInMemory(10), registry,
		trainingservice.WithLogger(logger),
		trainingservice.WithExperiments(governor),
	)
	require.NoError(t, err)
	scorer, err := scoringservice.New(registry,
		scoringservice.WithLogger(logger),
		scoringservice.WithExperiments(experiments),
	)
	require.NoError(t, err)

	return httptransport.NewRouter(httptransport.Deps{
		Logger:     logger,
		AdminToken: adminToken,
		Scoring:    scoringhandler.New(scorer, logger),
		Training:   traininghandler.New(trainer, logger),
		Experiment: experimenthandler.New(governor, logger),
	})
}

func TestRouterScaffold(t *testing.T) {
	testutil.Given(t, "the HTTP router with every handler mounted", func(t *testing.T) {
		router := newFullRouter(t)

		testutil.When(t, "classifying without a body", func(t *testing.T) {
			rec := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/v1/classify", nil))

			testutil.Then(t, "it should reject the request", func(t *testing.T) {
				testutil.AssertStatusAndError(t, rec, http.StatusBadRequest, "bad_request")
			})
		})

		testutil.When(t, "calling an admin route without the token", func(t *testing.T) {
			rec := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/admin/training/run", nil))

			testutil.Then(t, "it should respond unauthorized", func(t *testing.T) {
				testutil.AssertStatusAndError(t, rec, http.StatusUnauthorized, "unauthorized")
			})
		})

		testutil.When(t, "training with no observations", func(t *testing.T) {
			req := testutil.NewAdminRequest(t, http.MethodPost, "/admin/training/run", adminToken, map[string]any{"lookback_days": 7})
			rec := testutil.DoRequest(router, req)

			testutil.Then(t, "it should refuse the run", func(t *testing.T) {
				assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())
				resp := testutil.UnmarshalResponse[map[string]any](t, rec)
				assert.Equal(t, false, (*resp)["success"])
			})
		})

		testutil.When(t, "reading training history", func(t *testing.T) {
			rec := testutil.DoRequest(router, testutil.NewAdminRequest(t, http.MethodGet, "/admin/training/history", adminToken, nil))

			testutil.Then(t, "it should list the refused run", func(t *testing.T) {
				assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			})
		})

		testutil.When(t, "starting an experiment without a production model", func(t *testing.T) {
			req := testutil.NewAdminRequest(t, http.MethodPost, "/admin/experiment", adminToken, map[string]string{"treatment_version": "v2"})
			rec := testutil.DoRequest(router, req)

			testutil.Then(t, "it should report the broken invariant", func(t *testing.T) {
				testutil.AssertStatusAndError(t, rec, http.StatusUnprocessableEntity, "invariant_violation")
			})
		})

		testutil.When(t, "reading the scoring snapshot", func(t *testing.T) {
			rec := testutil.DoRequest(router, testutil.NewAdminRequest(t, http.MethodGet, "/admin/scoring/snapshot", adminToken, nil))

			testutil.Then(t, "it should respond with the empty snapshot", func(t *testing.T) {
				assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			})
		})

		testutil.When(t, "calling an unknown route", func(t *testing.T) {
			rec := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodGet, "/v2/classify", nil))

			testutil.Then(t, "it should respond not found", func(t *testing.T) {
				assert.Equal(t, http.StatusNotFound, rec.Code)
			})
		})
	})
}
