package main

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"credrec/internal/platform/config"
)

func TestPanicLogCarriesRequestID(t *testing.T) {
	var buf bytes.Buffer
	r := newRouter(slog.New(slog.NewTextHandler(&buf, nil)))
	r.Get("/boom", func(http.ResponseWriter, *http.Request) { panic("boom") })

	req := httptest.NewRequest(http.MethodGet, "/boom", nil)
	req.Header.Set("X-Request-ID", "req-42")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, buf.String(), "panic recovered")
	assert.NotContains(t, buf.String(), "request_id=\"\"")
	assert.Contains(t, buf.String(), "request_id=req-42")
}

func TestContractOptions(t *testing.T) {
	assert.Empty(t, contractOptions(config.ContractConfig{}))
	assert.Len(t, contractOptions(config.ContractConfig{
		InitializeOnce:         true,
		InitializedUpdatesOnly: true,
		AuthorizedCallers:      []string{"issuer-a"},
	}), 3)
}
