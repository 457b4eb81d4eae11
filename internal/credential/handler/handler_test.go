package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"credrec/internal/credential/contract"
	"credrec/internal/credential/service"
	"credrec/internal/host"
	"credrec/internal/host/storage"
	jwttoken "credrec/internal/jwt_token"
	"credrec/internal/platform/middleware"
	"credrec/pkg/domain"
)

const signingKey = "test-signing-key"

func TestCredentialLifecycleViaHandlers(t *testing.T) {
	router := newCredentialRouter(t)
	base := "/instances/" + domain.NewInstanceID().String()

	rec := do(t, router, http.MethodGet, base+"/hash", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_initialized", errorCode(t, rec))

	rec = do(t, router, http.MethodPost, base+"/initialize", `{"hash":"ab12ef","status":"Active"}`, "")
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, router, http.MethodGet, base+"/hash", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"hash":"ab12ef"}`, rec.Body.String())

	rec = do(t, router, http.MethodPut, base+"/status", `{"status":"Revoked"}`, "")
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, router, http.MethodGet, base+"/status", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"Revoked"}`, rec.Body.String())

	rec = do(t, router, http.MethodGet, base, "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"hash":"ab12ef","status":"Revoked"}`, rec.Body.String())
}

func TestHashIsStoredVerbatim(t *testing.T) {
	router := newCredentialRouter(t)
	base := "/instances/" + domain.NewInstanceID().String()

	rec := do(t, router, http.MethodPost, base+"/initialize", `{"hash":" ab12ef\n","status":"Active"}`, "")
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, router, http.MethodGet, base+"/hash", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var hashResp struct {
		Hash string `json:"hash"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &hashResp))
	assert.Equal(t, " ab12ef\n", hashResp.Hash)

	rec = do(t, router, http.MethodGet, base, "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"hash":" ab12ef\n","status":"Active"}`, rec.Body.String())
}

func TestReadsBeforeInitialize(t *testing.T) {
	router := newCredentialRouter(t)
	base := "/instances/" + domain.NewInstanceID().String()

	for _, path := range []string{base, base + "/hash", base + "/status"} {
		rec := do(t, router, http.MethodGet, path, "", "")
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
		assert.Equal(t, "not_initialized", errorCode(t, rec), path)
	}
}

func TestUpdateBeforeInitializeLeavesHashUnset(t *testing.T) {
	router := newCredentialRouter(t)
	base := "/instances/" + domain.NewInstanceID().String()

	rec := do(t, router, http.MethodPut, base+"/status", `{"status":"Suspended"}`, "")
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, router, http.MethodGet, base+"/status", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"Suspended"}`, rec.Body.String())

	rec = do(t, router, http.MethodGet, base+"/hash", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = do(t, router, http.MethodGet, base, "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRequestValidation(t *testing.T) {
	router := newCredentialRouter(t)
	base := "/instances/" + domain.NewInstanceID().String()

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
		code   string
	}{
		{"invalid instance id", http.MethodGet, "/instances/not-a-uuid/hash", "", http.StatusBadRequest, "bad_request"},
		{"nil instance id", http.MethodGet, "/instances/00000000-0000-0000-0000-000000000000", "", http.StatusBadRequest, "bad_request"},
		{"malformed body", http.MethodPost, base + "/initialize", `{"hash":`, http.StatusBadRequest, "bad_request"},
		{"unknown status", http.MethodPost, base + "/initialize", `{"hash":"ab","status":"Expired"}`, http.StatusBadRequest, "bad_request"},
		{"missing hash", http.MethodPost, base + "/initialize", `{"status":"Active"}`, http.StatusBadRequest, "validation_error"},
		{"blank hash", http.MethodPost, base + "/initialize", `{"hash":"   ","status":"Active"}`, http.StatusBadRequest, "validation_error"},
		{"missing status on update", http.MethodPut, base + "/status", `{}`, http.StatusBadRequest, "validation_error"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(t, router, tc.method, tc.path, tc.body, "")
			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, tc.code, errorCode(t, rec))
		})
	}
}

func TestAuthorizedCallers(t *testing.T) {
	tokens := jwttoken.NewJWTService(signingKey, jwttoken.DefaultIssuer, jwttoken.DefaultAudience)
	router := newCredentialRouter(t, contract.WithAuthorizer(contract.AllowCallers("issuer-a")))
	base := "/instances/" + domain.NewInstanceID().String()

	issuerToken, err := tokens.GenerateCallerToken("issuer-a", time.Minute)
	require.NoError(t, err)
	strangerToken, err := tokens.GenerateCallerToken("stranger", time.Minute)
	require.NoError(t, err)

	t.Run("anonymous write is forbidden", func(t *testing.T) {
		rec := do(t, router, http.MethodPost, base+"/initialize", `{"hash":"ab12ef","status":"Active"}`, "")
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("unlisted caller is forbidden", func(t *testing.T) {
		rec := do(t, router, http.MethodPost, base+"/initialize", `{"hash":"ab12ef","status":"Active"}`, strangerToken)
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Equal(t, "forbidden", errorCode(t, rec))
	})

	t.Run("invalid token is unauthorized", func(t *testing.T) {
		rec := do(t, router, http.MethodPost, base+"/initialize", `{"hash":"ab12ef","status":"Active"}`, "garbage")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("listed caller writes and anyone reads", func(t *testing.T) {
		rec := do(t, router, http.MethodPost, base+"/initialize", `{"hash":"ab12ef","status":"Active"}`, issuerToken)
		require.Equal(t, http.StatusNoContent, rec.Code)

		rec = do(t, router, http.MethodPut, base+"/status", `{"status":"Revoked"}`, strangerToken)
		assert.Equal(t, http.StatusForbidden, rec.Code)

		rec = do(t, router, http.MethodGet, base+"/status", "", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"status":"Active"}`, rec.Body.String())
	})
}

func TestInitializeOnceConflicts(t *testing.T) {
	router := newCredentialRouter(t, contract.WithInitializeOnce())
	base := "/instances/" + domain.NewInstanceID().String()

	rec := do(t, router, http.MethodPost, base+"/initialize", `{"hash":"ab12ef","status":"Active"}`, "")
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, router, http.MethodPost, base+"/initialize", `{"hash":"ffff","status":"Active"}`, "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, router, http.MethodGet, base+"/hash", "", "")
	assert.JSONEq(t, `{"hash":"ab12ef"}`, rec.Body.String())
}

func newCredentialRouter(t *testing.T, opts ...contract.Option) http.Handler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h, err := host.New(storage.NewInMemory(), host.WithLogger(logger))
	require.NoError(t, err)
	svc := service.New(h, contract.New(opts...), service.WithLogger(logger))
	tokens := jwttoken.NewJWTService(signingKey, jwttoken.DefaultIssuer, jwttoken.DefaultAudience)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.IdentifyCaller(tokens, logger))
	New(svc, logger).Register(r)
	return r
}

func do(t *testing.T, router http.Handler, method, path, body, token string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.NewDecoder(bytes.NewReader(rec.Body.Bytes())).Decode(&body))
	return body["error"]
}
