package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linvo/catalog"
	"linvo/internal/auth"
	"linvo/internal/services"
	"linvo/storage"
)

type stubCatalog struct {
	channels map[string]*catalog.ChannelInfo
	videos   map[string][]catalog.VideoInfo
	listErr  error
}

func (c *stubCatalog) ResolveChannel(_ context.Context, id string) (*catalog.ChannelInfo, error) {
	if info, ok := c.channels[id]; ok {
		return info, nil
	}
	return nil, fmt.Errorf("%w: %s", catalog.ErrNotFound, id)
}

func (c *stubCatalog) ListRecentVideos(_ context.Context, channelID string, _ int) ([]catalog.VideoInfo, error) {
	if c.listErr != nil {
		return nil, c.listErr
	}
	return c.videos[channelID], nil
}

type testEnv struct {
	handler http.Handler
	catalog *stubCatalog
	backend *storage.MemoryBackend
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := log.NewStdLogger(io.Discard)
	ctx := context.Background()

	backend := storage.NewMemoryBackend()
	session := services.NewSession(ctx, storage.NewStore(backend, logger), logger)
	cat := &stubCatalog{
		channels: map[string]*catalog.ChannelInfo{
			"UC123": {ChannelID: "UC123", Title: "Test Channel"},
		},
		videos: map[string][]catalog.VideoInfo{
			"UC123": {{VideoID: "v1", Title: "One"}, {VideoID: "v2", Title: "Two"}},
		},
	}
	issuer, err := auth.NewTokenIssuer([]byte("0123456789abcdef0123456789abcdef"), 0)
	require.NoError(t, err)

	srv := New(Deps{
		Session:  session,
		Kids:     services.NewKidService(session),
		Settings: services.NewSettingsService(session),
		Imports:  services.NewImportService(session, cat, 0, logger),
		Playback: services.NewPlaybackService(session),
		Gate:     auth.NewGate(auth.NewPlainVerifier("1234"), issuer),
	}, logger)
	return &testEnv{handler: srv.Handler(), catalog: cat, backend: backend}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		switch b := body.(type) {
		case string:
			r = bytes.NewBufferString(b)
		default:
			data, err := json.Marshal(b)
			require.NoError(t, err)
			r = bytes.NewReader(data)
		}
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, req)
	return w
}

func (e *testEnv) unlock(t *testing.T) string {
	t.Helper()
	w := e.do(t, http.MethodPost, "/api/admin/unlock", "", gin.H{"pin": "1234"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp struct {
		Token     string `json:"token"`
		ExpiresAt string `json:"expiresAt"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	require.NotEmpty(t, resp.ExpiresAt)
	return resp.Token
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestListKids_Default(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, http.MethodGet, "/api/kids", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	resp := decode[struct {
		Kids         []storage.KidProfile `json:"kids"`
		CurrentKidID string               `json:"currentKidId"`
	}](t, w)
	require.Len(t, resp.Kids, 1)
	assert.Equal(t, "Alex", resp.Kids[0].Name)
	assert.Equal(t, "kid-1", resp.CurrentKidID)
}

func TestAdminRoutesRequireToken(t *testing.T) {
	env := newTestEnv(t)
	tests := []struct {
		method, path, token string
	}{
		{http.MethodPost, "/api/admin/kids", ""},
		{http.MethodGet, "/api/admin/settings", ""},
		{http.MethodGet, "/api/admin/summary", "not-a-token"},
		{http.MethodPost, "/api/admin/channels", "a.b.c"},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := env.do(t, tt.method, tt.path, tt.token, gin.H{})
			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
}

func TestUnlock_WrongPIN(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, http.MethodPost, "/api/admin/unlock", "", gin.H{"pin": "0000"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.do(t, http.MethodPost, "/api/admin/unlock", "", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAddKidAndSelect(t *testing.T) {
	env := newTestEnv(t)
	token := env.unlock(t)

	w := env.do(t, http.MethodPost, "/api/admin/kids", token, gin.H{"name": "   "})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "name", decode[map[string]string](t, w)["field"])

	w = env.do(t, http.MethodPost, "/api/admin/kids", token, gin.H{"name": "sam"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	kid := decode[storage.KidProfile](t, w)
	assert.Equal(t, "S", kid.Initial)

	w = env.do(t, http.MethodPut, "/api/kids/current", "", gin.H{"kidId": kid.ID})
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodGet, "/api/kids/current", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, kid.ID, decode[storage.KidProfile](t, w).ID)

	w = env.do(t, http.MethodPut, "/api/kids/current", "", gin.H{"kidId": "kid-missing"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestImportChannelFlow(t *testing.T) {
	env := newTestEnv(t)
	token := env.unlock(t)

	w := env.do(t, http.MethodPost, "/api/admin/channels", token, gin.H{
		"input": "https://www.youtube.com/channel/UC123",
		"kidId": "kid-1",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	channel := decode[storage.ApprovedChannel](t, w)
	assert.Equal(t, "UC123", channel.ChannelID)

	w = env.do(t, http.MethodGet, "/api/kids/kid-1/channels", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[map[string][]storage.ApprovedChannel](t, w)["channels"], 1)

	w = env.do(t, http.MethodGet, "/api/kids/kid-1/videos", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[map[string][]storage.ImportedVideo](t, w)["videos"], 2)

	env.catalog.videos["UC123"] = append(env.catalog.videos["UC123"], catalog.VideoInfo{VideoID: "v3"})
	w = env.do(t, http.MethodPost, "/api/admin/channels/"+channel.ID+"/refresh", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, decode[map[string]int](t, w)["added"])

	w = env.do(t, http.MethodPost, "/api/admin/channels/ch-missing/refresh", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestImportChannelErrors(t *testing.T) {
	env := newTestEnv(t)
	token := env.unlock(t)

	tests := []struct {
		name  string
		input string
		kid   string
		want  int
	}{
		{"unparseable", "https://www.youtube.com/watch?v=x", "kid-1", http.StatusBadRequest},
		{"empty", "", "kid-1", http.StatusBadRequest},
		{"unknown channel", "UCnope", "kid-1", http.StatusNotFound},
		{"unknown kid", "UC123", "kid-9", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, http.MethodPost, "/api/admin/channels", token, gin.H{"input": tt.input, "kidId": tt.kid})
			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}
}

func TestImportChannel_ListFailureReturnsChannel(t *testing.T) {
	env := newTestEnv(t)
	token := env.unlock(t)
	env.catalog.listErr = &catalog.TransportError{Op: "search.list", StatusCode: 503, Err: fmt.Errorf("unavailable")}

	w := env.do(t, http.MethodPost, "/api/admin/channels", token, gin.H{"input": "UC123", "kidId": "kid-1"})
	require.Equal(t, http.StatusBadGateway, w.Code)

	resp := decode[struct {
		Error   string                  `json:"error"`
		Channel storage.ApprovedChannel `json:"channel"`
	}](t, w)
	assert.Equal(t, "UC123", resp.Channel.ChannelID)
	assert.NotEmpty(t, resp.Error)
}

func TestPlaybackAndRecent(t *testing.T) {
	env := newTestEnv(t)
	for i := 0; i < 10; i++ {
		w := env.do(t, http.MethodPost, "/api/kids/kid-1/playback", "", gin.H{
			"videoId": fmt.Sprintf("p%d", i), "title": "t", "channelTitle": "c",
		})
		require.Equal(t, http.StatusNoContent, w.Code)
	}

	w := env.do(t, http.MethodGet, "/api/kids/kid-1/recent", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	recent := decode[map[string][]storage.ImportedVideo](t, w)["videos"]
	require.Len(t, recent, services.DefaultRecentlyWatched)
	assert.Equal(t, "p9", recent[0].ID)

	w = env.do(t, http.MethodGet, "/api/kids/kid-1/recent?limit=3", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[map[string][]storage.ImportedVideo](t, w)["videos"], 3)

	w = env.do(t, http.MethodGet, "/api/kids/kid-1/recent?limit=x", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPost, "/api/kids/kid-1/playback", "", gin.H{"title": "no id"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPost, "/api/kids/kid-9/playback", "", gin.H{"videoId": "x"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSettings(t *testing.T) {
	env := newTestEnv(t)
	token := env.unlock(t)

	tests := []struct {
		name string
		body string
		want *int
	}{
		{"number", `{"dailyLimitMinutes": 30}`, intPtr(30)},
		{"string", `{"dailyLimitMinutes": "45"}`, intPtr(45)},
		{"garbage", `{"dailyLimitMinutes": "abc"}`, nil},
		{"null", `{"dailyLimitMinutes": null}`, nil},
		{"fraction", `{"dailyLimitMinutes": 1.5}`, intPtr(1)},
		{"trailing text", `{"dailyLimitMinutes": "90 minutes"}`, intPtr(90)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, http.MethodPatch, "/api/admin/settings", token, tt.body)
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())
			assert.Equal(t, tt.want, decode[storage.ViewingSettings](t, w).DailyLimitMinutes)
		})
	}

	w := env.do(t, http.MethodPatch, "/api/admin/settings", token, `{"downtimeStart":"20:00","downtimeEnd":"07:00"}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodPatch, "/api/admin/settings", token, `{"downtimeStart":"8pm"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodGet, "/api/admin/settings", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	got := decode[storage.ViewingSettings](t, w)
	assert.Equal(t, "20:00", got.DowntimeStart)
	assert.Equal(t, "07:00", got.DowntimeEnd)
}

func TestSummary(t *testing.T) {
	env := newTestEnv(t)
	token := env.unlock(t)

	w := env.do(t, http.MethodPost, "/api/admin/channels", token, gin.H{"input": "UC123", "kidId": "kid-1"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = env.do(t, http.MethodGet, "/api/admin/summary", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[struct {
		Kids []services.KidSummary `json:"kids"`
	}](t, w)
	require.Len(t, resp.Kids, 1)
	assert.Equal(t, 1, resp.Kids[0].ChannelCount)
	assert.Equal(t, 2, resp.Kids[0].VideoCount)
	assert.True(t, resp.Kids[0].Current)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{&services.ValidationError{Field: "name", Reason: "empty"}, http.StatusBadRequest},
		{services.ErrKidNotFound, http.StatusNotFound},
		{fmt.Errorf("wrap: %w", catalog.ErrNotFound), http.StatusNotFound},
		{&catalog.TransportError{Op: "x", Err: io.EOF}, http.StatusBadGateway},
		{auth.ErrInvalidPIN, http.StatusUnauthorized},
		{auth.ErrNotConfigured, http.StatusServiceUnavailable},
		{io.EOF, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}

func intPtr(v int) *int { return &v }
