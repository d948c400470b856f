package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestInitIsIdempotent(t *testing.T) {
	Init()
	Init()

	require.NotNil(t, providerCallsTotal)
	require.NotNil(t, httpRequestsTotal)
	require.NotNil(t, dedupResolutionsTotal)
}

func TestObserveProviderCall(t *testing.T) {
	Init()

	ObserveProviderCall("google_places", "nearby", nil, 100*time.Millisecond)
	ObserveProviderCall("google_places", "nearby", errors.New("boom"), 50*time.Millisecond)

	require.Equal(t, 1.0, testutil.ToFloat64(providerCallsTotal.WithLabelValues("google_places", "nearby", "ok")))
	require.Equal(t, 1.0, testutil.ToFloat64(providerCallsTotal.WithLabelValues("google_places", "nearby", "error")))
}

func TestMiddlewareRecordsRequests(t *testing.T) {
	Init()

	r := chi.NewRouter()
	r.Use(Middleware)
	r.Get("/ping", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	ts := httptest.NewServer(r)
	defer ts.Close()

	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "200"))
	resp, err := http.Get(ts.URL + "/ping")
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())

	require.Equal(t, before+1, testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "200")))
	require.Positive(t, testutil.CollectAndCount(httpRequestDurationSeconds))
}
