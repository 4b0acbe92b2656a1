package conn

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"yonmai/common/config"
	"yonmai/common/jwts"
	"yonmai/core/infrastructure/message/node"
	"yonmai/core/infrastructure/message/transfer"
	"yonmai/core/infrastructure/persistence"
	"yonmai/runtime/game"
	"yonmai/runtime/game/application/service"
	"yonmai/runtime/game/application/service/impl"
	"yonmai/runtime/game/engines/mahjong"
)

const testSecret = "test-secret"

type gateway struct {
	server   *httptest.Server
	worker   *Worker
	registry *game.MatchRegistry
	matches  service.MatchService
}

func newGateway(t *testing.T) *gateway {
	t.Helper()
	timing := mahjong.Timing{
		Turn: time.Hour, Discard: time.Hour, Response: time.Hour,
		Stock: time.Hour, RoundEnd: time.Hour, AutoPlay: time.Hour,
	}
	hub := node.NewLocalHub()
	registry := game.NewMatchRegistry(mahjong.NewEngine(timing, 11), persistence.NewMemoryMatchStore(), hub, mahjong.DefaultRule(), game.Options{})
	matches := impl.NewMatchService(registry)
	worker := NewWorker("gw-test", config.WsConf{RateLimit: 100}, testSecret, matches, hub)
	server := httptest.NewServer(worker)
	t.Cleanup(func() {
		server.Close()
		_ = worker.Close(context.Background())
		registry.Close()
		_ = hub.Close()
	})
	return &gateway{server: server, worker: worker, registry: registry, matches: matches}
}

func (g *gateway) dial(t *testing.T, userID string) *websocket.Conn {
	t.Helper()
	token, err := jwts.GetToken(jwts.NewClaims(userID, time.Hour), testSecret)
	require.NoError(t, err)
	url := "ws" + strings.TrimPrefix(g.server.URL, "http") + "/ws?token=" + token
	ws, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)
	t.Cleanup(func() { _ = ws.Close() })
	return ws
}

func send(t *testing.T, ws *websocket.Conn, event string, data transfer.IntentData) {
	t.Helper()
	frame, err := transfer.NewFrame(event, data)
	require.NoError(t, err)
	require.NoError(t, ws.WriteMessage(websocket.TextMessage, frame))
}

func read(t *testing.T, ws *websocket.Conn) transfer.Envelope {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, msg, err := ws.ReadMessage()
	require.NoError(t, err)
	var env transfer.Envelope
	require.NoError(t, json.Unmarshal(msg, &env))
	return env
}

// readStateUntil 丢弃中间快照，直到满足条件
func readStateUntil(t *testing.T, ws *websocket.Conn, ok func(*transfer.ViewFrame) bool) *transfer.ViewFrame {
	t.Helper()
	for i := 0; i < 20; i++ {
		env := read(t, ws)
		if env.Type != transfer.TypeState {
			continue
		}
		var frame transfer.ViewFrame
		require.NoError(t, json.Unmarshal(env.Data, &frame))
		if ok(&frame) {
			return &frame
		}
	}
	t.Fatalf("expected state frame not received")
	return nil
}

func (g *gateway) seatFour(t *testing.T) (string, []*websocket.Conn) {
	t.Helper()
	resp, err := g.matches.CreateMatch(context.Background(), &service.CreateMatchReq{})
	require.NoError(t, err)

	conns := make([]*websocket.Conn, 4)
	for i := range conns {
		conns[i] = g.dial(t, fmt.Sprintf("p%d", i))
		send(t, conns[i], "join", transfer.IntentData{MatchID: resp.MatchID, Name: fmt.Sprintf("player%d", i)})
		readStateUntil(t, conns[i], func(f *transfer.ViewFrame) bool { return f.View.ViewerSeat == i })
	}
	return resp.MatchID, conns
}

func TestWorker_RejectsMissingToken(t *testing.T) {
	g := newGateway(t)
	url := "ws" + strings.TrimPrefix(g.server.URL, "http") + "/ws"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestWorker_BroadcastsRedactedViews(t *testing.T) {
	g := newGateway(t)
	matchID, conns := g.seatFour(t)

	send(t, conns[0], "request-start", transfer.IntentData{MatchID: matchID})
	for i, ws := range conns {
		frame := readStateUntil(t, ws, func(f *transfer.ViewFrame) bool {
			return f.View.Phase != mahjong.PhaseWaitingToStart
		})
		assert.Nil(t, frame.View.Wall, "seat %d sees the wall", i)
		for _, p := range frame.View.Players {
			if p.Seat == i {
				assert.NotEmpty(t, p.Hand, "seat %d own hand", i)
				continue
			}
			assert.Nil(t, p.Hand, "seat %d sees seat %d hand", i, p.Seat)
			assert.Equal(t, len(mustSnapshot(t, g, matchID).Players[p.Seat].Hand), frame.View.HandCounts[p.Seat])
		}
	}
}

func TestWorker_ErrorGoesToOriginOnly(t *testing.T) {
	g := newGateway(t)
	matchID, conns := g.seatFour(t)

	send(t, conns[1], "draw", transfer.IntentData{MatchID: matchID})
	env := read(t, conns[1])
	for env.Type == transfer.TypeState {
		env = read(t, conns[1])
	}
	require.Equal(t, transfer.TypeError, env.Type)
	var body transfer.ErrorBody
	require.NoError(t, json.Unmarshal(env.Data, &body))
	assert.Equal(t, "FailedPrecondition", body.Code)

	// 其他连接只可能收到入座时的广播，不会收到错误
	for _, ws := range []*websocket.Conn{conns[0], conns[2]} {
		for {
			require.NoError(t, ws.SetReadDeadline(time.Now().Add(100*time.Millisecond)))
			_, msg, err := ws.ReadMessage()
			if err != nil {
				var netErr net.Error
				require.ErrorAs(t, err, &netErr)
				assert.True(t, netErr.Timeout())
				break
			}
			var other transfer.Envelope
			require.NoError(t, json.Unmarshal(msg, &other))
			assert.NotEqual(t, transfer.TypeError, other.Type)
		}
	}
}

func TestWorker_UnknownEventRejected(t *testing.T) {
	g := newGateway(t)
	ws := g.dial(t, "p0")

	send(t, ws, "teleport", transfer.IntentData{MatchID: "m"})
	env := read(t, ws)
	require.Equal(t, transfer.TypeError, env.Type)
	var body transfer.ErrorBody
	require.NoError(t, json.Unmarshal(env.Data, &body))
	assert.Equal(t, "InvalidArgument", body.Code)
}

func TestWorker_DisconnectMarksPlayer(t *testing.T) {
	g := newGateway(t)
	matchID, conns := g.seatFour(t)
	send(t, conns[0], "request-start", transfer.IntentData{MatchID: matchID})
	readStateUntil(t, conns[0], func(f *transfer.ViewFrame) bool {
		return f.View.Phase != mahjong.PhaseWaitingToStart
	})

	require.NoError(t, conns[3].Close())
	require.Eventually(t, func() bool {
		return mustSnapshot(t, g, matchID).Players[3].Disconnected
	}, 2*time.Second, 10*time.Millisecond)

	frame := readStateUntil(t, conns[0], func(f *transfer.ViewFrame) bool {
		return f.View.Players[3].Disconnected
	})
	assert.Equal(t, 0, frame.View.ViewerSeat)

	// 重连后 join 清除托管标记
	back := g.dial(t, "p3")
	send(t, back, "join", transfer.IntentData{MatchID: matchID})
	readStateUntil(t, back, func(f *transfer.ViewFrame) bool {
		return f.View.ViewerSeat == 3 && !f.View.Players[3].Disconnected
	})
}

func mustSnapshot(t *testing.T, g *gateway, matchID string) *mahjong.Match {
	t.Helper()
	m, err := g.registry.Snapshot(context.Background(), matchID)
	require.NoError(t, err)
	return m
}
