package httpx

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func secretProtectedHandler(secret string, called *bool) http.Handler {
	return RequireSecret(secret)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		*called = true
		w.WriteHeader(http.StatusOK)
	}))
}

func TestRequireSecret_HeaderAccepted(t *testing.T) {
	var called bool
	h := secretProtectedHandler("hunter2", &called)

	r := httptest.NewRequest(http.MethodPost, "/targets/sync", nil)
	r.Header.Set(SecretHeader, "hunter2")
	w := httptest.NewRecorder()

	h.ServeHTTP(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, called)
}

func TestRequireSecret_QueryParamAccepted(t *testing.T) {
	var called bool
	h := secretProtectedHandler("hunter2", &called)

	r := httptest.NewRequest(http.MethodPost, "/targets/sync?secret=hunter2", nil)
	w := httptest.NewRecorder()

	h.ServeHTTP(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, called)
}

func TestRequireSecret_WrongSecretRejectedBeforeHandler(t *testing.T) {
	var called bool
	h := secretProtectedHandler("hunter2", &called)

	r := httptest.NewRequest(http.MethodPost, "/targets/sync", nil)
	r.Header.Set(SecretHeader, "wrong")
	w := httptest.NewRecorder()

	h.ServeHTTP(w, r)

	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.False(t, called)

	var body map[string]string
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, "unauthorized", body["error"])
}

func TestRequireSecret_MissingSecretRejected(t *testing.T) {
	var called bool
	h := secretProtectedHandler("hunter2", &called)

	r := httptest.NewRequest(http.MethodPost, "/targets/sync", nil)
	w := httptest.NewRecorder()

	h.ServeHTTP(w, r)

	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.False(t, called)
}

func TestRequireSecret_EmptyConfiguredSecretRejectsEverything(t *testing.T) {
	var called bool
	h := secretProtectedHandler("", &called)

	r := httptest.NewRequest(http.MethodPost, "/targets/sync", nil)
	r.Header.Set(SecretHeader, "")
	w := httptest.NewRecorder()

	h.ServeHTTP(w, r)

	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.False(t, called)
}

func TestRecover_PanicBecomes500(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := Recover(logger)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	r := httptest.NewRequest(http.MethodGet, "/inbox", nil)
	w := httptest.NewRecorder()

	h.ServeHTTP(w, r)

	require.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestLogging_PassesThroughStatus(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := Logging(logger)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	r := httptest.NewRequest(http.MethodGet, "/inbox", nil)
	w := httptest.NewRecorder()

	h.ServeHTTP(w, r)

	require.Equal(t, http.StatusTeapot, w.Code)
}
