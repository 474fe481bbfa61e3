package server_test

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"backoffice/internal/config"
	"backoffice/internal/handler"
	"backoffice/internal/infra/storage"
	"backoffice/internal/server"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) http.Handler {
	t.Helper()
	return newTestServerWith(t, config.Config{JWTSecret: "test-secret", UploadDir: t.TempDir(), StaticRoute: "/storage", PublicBaseURL: "/storage"})
}

func newTestServerWith(t *testing.T, cfg config.Config) http.Handler {
	t.Helper()
	log := slog.New(slog.NewJSONHandler(&bytes.Buffer{}, nil))

	// ルーティングと認証だけ見るのでusecaseはnil
	return server.New(log, cfg, nil, server.Handlers{
		Orders:     handler.NewOrderHandler(nil),
		OrderItems: handler.NewOrderItemHandler(nil),
		Payments:   handler.NewPaymentHandler(nil),
		Audit:      handler.NewAuditHandler(nil),
	})
}

func token(t *testing.T, roles ...string) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   3,
		"roles": roles,
		"exp":   9999999999,
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return "Bearer " + s
}

func TestServer_Healthz(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestServer(t).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_RoutesRequireAuth(t *testing.T) {
	srv := newTestServer(t)

	for _, r := range []struct{ method, path string }{
		{http.MethodGet, "/orders"},
		{http.MethodPost, "/orders"},
		{http.MethodPost, "/orders/1/payment"},
		{http.MethodGet, "/payments"},
		{http.MethodGet, "/admin/audit-logs"},
	} {
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest(r.method, r.path, nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code, r.path)
	}
}

func TestServer_AuditLogsAdminOnly(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/admin/audit-logs", nil)
	req.Header.Set("Authorization", token(t, "buyer", "seller"))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

// PUBLIC_BASE_URLが絶対URLでもファイルはSTATIC_ROUTEで配信する
func TestServer_StaticRoute(t *testing.T) {
	dir := t.TempDir()
	files := storage.NewLocalStore(dir, "https://cdn.example.com/storage")
	require.NoError(t, files.InstallDefaults())
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "payment-proofs"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "payment-proofs", "a.jpg"), []byte("jpg"), 0o644))

	srv := newTestServerWith(t, config.Config{
		JWTSecret:     "test-secret",
		UploadDir:     dir,
		StaticRoute:   "/storage",
		PublicBaseURL: "https://cdn.example.com/storage",
	})

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/storage/payment-proofs/a.jpg", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "jpg", rec.Body.String())

	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/storage/defaults/payment-proof.png", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
}
