package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"yonmai/common/config"
	"yonmai/common/discovery"
	ghttp "yonmai/common/http"
	"yonmai/core/infrastructure/message/node"
	"yonmai/core/infrastructure/persistence"
	"yonmai/runtime/game"
	"yonmai/runtime/game/application/service/impl"
	"yonmai/runtime/game/engines/mahjong"
)

type fakeSeeker struct {
	servers []discovery.Server
}

func (f *fakeSeeker) GetServers(_ context.Context, _ string) ([]discovery.Server, error) {
	return f.servers, nil
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func newServer(t *testing.T, jwt config.JwtConf, seeker ServerLister) http.Handler {
	t.Helper()
	hub := node.NewLocalHub()
	registry := game.NewMatchRegistry(mahjong.NewEngine(mahjong.DefaultTiming(), 3), persistence.NewMemoryMatchStore(), hub, mahjong.DefaultRule(), game.Options{})
	t.Cleanup(registry.Close)

	server := ghttp.NewHttpServer(ghttp.WithMode("test"))
	NewHandlers("game-test", "game", jwt, impl.NewMatchService(registry), seeker).RegisterRoutes(server)
	return server.Handler()
}

func do(t *testing.T, h http.Handler, method, path, token string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	var env envelope
	_ = json.Unmarshal(rec.Body.Bytes(), &env)
	return rec, env
}

func devToken(t *testing.T, h http.Handler, userID string) string {
	t.Helper()
	rec, env := do(t, h, http.MethodPost, "/api/v1/dev/token", "", map[string]string{"userId": userID})
	require.Equal(t, http.StatusOK, rec.Code)
	var data struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.NotEmpty(t, data.Token)
	return data.Token
}

var devJwt = config.JwtConf{Secret: "s3cret", Expire: 3600, AllowDevToken: true}

func TestMatchLifecycleOverHTTP(t *testing.T) {
	h := newServer(t, devJwt, nil)
	alice := devToken(t, h, "alice")

	rec, env := do(t, h, http.MethodPost, "/api/v1/matches", alice, map[string]string{"name": "Alice"})
	require.Equal(t, http.StatusOK, rec.Code)
	var created struct {
		MatchID string `json:"matchId"`
		Version int64  `json:"version"`
		Seat    int    `json:"seat"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &created))
	assert.NotEmpty(t, created.MatchID)
	assert.Equal(t, int64(2), created.Version)
	assert.Equal(t, 0, created.Seat)

	rec, env = do(t, h, http.MethodGet, "/api/v1/matches", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Matches []game.Summary `json:"matches"`
		Total   int            `json:"total"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &list))
	require.Equal(t, 1, list.Total)
	assert.Equal(t, []string{"alice"}, list.Matches[0].Players)

	bob := devToken(t, h, "bob")
	rec, env = do(t, h, http.MethodGet, "/api/v1/matches/"+created.MatchID, bob, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var view mahjong.View
	require.NoError(t, json.Unmarshal(env.Data, &view))
	assert.Equal(t, -1, view.ViewerSeat)
	assert.Equal(t, []mahjong.IntentKind{mahjong.IntentJoin}, view.LegalMoves)
}

func TestMatchNotFound(t *testing.T) {
	h := newServer(t, devJwt, nil)
	token := devToken(t, h, "alice")

	rec, env := do(t, h, http.MethodGet, "/api/v1/matches/missing", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, ghttp.CodeNotFound, env.Code)
}

func TestCreateMatchRequiresToken(t *testing.T) {
	h := newServer(t, devJwt, nil)

	rec, _ := do(t, h, http.MethodPost, "/api/v1/matches", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = do(t, h, http.MethodPost, "/api/v1/matches", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestDevTokenDisabled(t *testing.T) {
	h := newServer(t, config.JwtConf{Secret: "s3cret", Expire: 3600}, nil)

	rec, _ := do(t, h, http.MethodPost, "/api/v1/dev/token", "", map[string]string{"userId": "alice"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLeastLoaded(t *testing.T) {
	seeker := &fakeSeeker{servers: []discovery.Server{
		{NodeID: "a", Load: 0.7, Weight: 1},
		{NodeID: "b", Load: 0.2, Weight: 1},
		{NodeID: "c", Load: 0.2, Weight: 5},
	}}
	h := newServer(t, devJwt, seeker)

	rec, env := do(t, h, http.MethodGet, "/api/v1/nodes/least-loaded", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var best discovery.Server
	require.NoError(t, json.Unmarshal(env.Data, &best))
	assert.Equal(t, "c", best.NodeID)

	empty := newServer(t, devJwt, &fakeSeeker{})
	rec, _ = do(t, empty, http.MethodGet, "/api/v1/nodes/least-loaded", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	disabled := newServer(t, devJwt, nil)
	rec, _ = do(t, disabled, http.MethodGet, "/api/v1/nodes/least-loaded", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
