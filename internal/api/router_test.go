package api

import (
	"context"
	"image"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/amit9129/automated-parking-system/internal/api/middleware"
	"github.com/amit9129/automated-parking-system/internal/domain"
	"github.com/amit9129/automated-parking-system/internal/repository"
	"github.com/amit9129/automated-parking-system/internal/repository/repofakes"
	"github.com/amit9129/automated-parking-system/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type nopLifecycle struct{}

func (nopLifecycle) RegisterEntry(ctx context.Context, frame image.Image) (*domain.EntryReceipt, error) {
	return nil, service.ErrDetectionFailed
}
func (nopLifecycle) RegisterEntryFromCamera(ctx context.Context) (*domain.EntryReceipt, error) {
	return nil, service.ErrCaptureBusy
}
func (nopLifecycle) ProcessExit(ctx context.Context, plate string) (*domain.ExitResponse, error) {
	return nil, repository.ErrNotFound
}
func (nopLifecycle) ProcessPayment(ctx context.Context, plate string, method domain.PaymentMethod) (*domain.PaymentConfirmation, error) {
	return nil, repository.ErrNotFound
}
func (nopLifecycle) PurgeExpired(ctx context.Context) (int, error) { return 4, nil }
func (nopLifecycle) GetSession(ctx context.Context, id int64) (*domain.ParkingSession, error) {
	return nil, repository.ErrNotFound
}
func (nopLifecycle) FindSessions(ctx context.Context, filter domain.ParkingSessionFilterDTO) ([]domain.ParkingSession, error) {
	return []domain.ParkingSession{}, nil
}

func newTestRouter(t *testing.T) (*gin.Engine, *service.AuthService, string) {
	t.Helper()
	auth := service.NewAuthService(repofakes.NewFakeUserRepo(), "router-secret", time.Hour, zap.NewNop())
	qrDir := t.TempDir()
	r := SetupRouter(Services{Auth: auth, Parking: nopLifecycle{}},
		middleware.NewAuthMiddleware(auth, zap.NewNop()), nil, qrDir, zap.NewNop())
	return r, auth, qrDir
}

func login(t *testing.T, r http.Handler, username, password string) string {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/auth/login",
		strings.NewReader(`{"username":"`+username+`","password":"`+password+`"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	body := w.Body.String()
	start := strings.Index(body, `"token":"`) + len(`"token":"`)
	return body[start : start+strings.Index(body[start:], `"`)]
}

func authed(r http.Handler, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRouter_AuthAndRoles(t *testing.T) {
	r, auth, _ := newTestRouter(t)
	ctx := context.Background()

	req := httptest.NewRequest(http.MethodPost, "/auth/register", strings.NewReader(`{"username":"gate01","password":"secret1"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.NotContains(t, w.Body.String(), "password")

	require.NoError(t, auth.EnsureAdmin(ctx, "root", "rootpass"))

	operator := login(t, r, "gate01", "secret1")
	admin := login(t, r, "root", "rootpass")

	assert.Equal(t, http.StatusUnauthorized, authed(r, http.MethodGet, "/api/v1/sessions", "garbage").Code)
	assert.Equal(t, http.StatusOK, authed(r, http.MethodGet, "/api/v1/sessions", operator).Code)
	assert.Equal(t, http.StatusNotFound, authed(r, http.MethodGet, "/api/v1/sessions/9", operator).Code)

	assert.Equal(t, http.StatusForbidden, authed(r, http.MethodPost, "/api/v1/purge", operator).Code)
	w = authed(r, http.MethodPost, "/api/v1/purge", admin)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"purged_count":4}`, w.Body.String())

	assert.Equal(t, http.StatusConflict, authed(r, http.MethodPost, "/api/v1/entry", operator).Code)
}

func TestRouter_PublicRoutes(t *testing.T) {
	r, _, qrDir := newTestRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	require.NoError(t, os.WriteFile(filepath.Join(qrDir, "code.png"), []byte("png"), 0o644))
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/static/qrcodes/code.png", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "png", w.Body.String())

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/lpr/detect", nil))
	assert.Equal(t, http.StatusNotFound, w.Code, "detect endpoint is not mounted without a plate reader")
}
