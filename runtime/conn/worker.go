package conn

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"yonmai/common/config"
	ghttp "yonmai/common/http"
	"yonmai/common/jwts"
	"yonmai/common/log"
	"yonmai/common/utils"
	"yonmai/core/infrastructure/message/node"
	"yonmai/runtime/game/application/service"
)

/*
长连接网关职责：
 1. 连接事件：鉴权、升级、读写协程与心跳
 2. 意图转发：上行事件解析为意图交给 MatchService，错误只回给发起连接
 3. 房间广播：按对局订阅 Broadcaster，收到快照后按座位裁剪再下发
 4. 断线：连接关闭时对所在对局提交 leave，对局中的玩家转为托管
*/

type CheckOriginHandler func(r *http.Request) bool

type WorkerOption func(worker *Worker)

// WithMaxConnections 连接数上限
func WithMaxConnections(n int) WorkerOption {
	return func(w *Worker) {
		w.maxConnectionCount = n
	}
}

// WithUpgradeRateLimiter 握手速率限制
func WithUpgradeRateLimiter(rl *utils.RateLimiter) WorkerOption {
	return func(w *Worker) {
		w.ConnectionRateLimiter = rl
	}
}

type Worker struct {
	nodeID             string
	conf               config.WsConf
	secret             string
	websocketUpgrade   *websocket.Upgrader
	upgradeOnce        sync.Once
	CheckOriginHandler CheckOriginHandler

	matches     service.MatchService
	broadcaster node.Broadcaster

	ConnectionRateLimiter *utils.RateLimiter
	maxConnectionCount    int

	clientsLock sync.RWMutex
	clients     map[string]*LongConnection
	connMap     sync.Map // userID -> *LongConnection

	roomsLock sync.Mutex
	rooms     map[string]*room

	closing atomic.Bool
	stats   struct {
		messageProcessed   atomic.Int64
		messageErrors      atomic.Int64
		currentConnections atomic.Int32
	}

	server *http.Server
}

func NewWorker(nodeID string, conf config.WsConf, secret string, matches service.MatchService, broadcaster node.Broadcaster, opts ...WorkerOption) *Worker {
	if conf.ReadLimit <= 0 {
		conf.ReadLimit = 4096
	}
	if conf.PongWait <= 0 {
		conf.PongWait = 60
	}
	if conf.SendQueueSize <= 0 {
		conf.SendQueueSize = 64
	}
	if conf.RateLimit <= 0 {
		conf.RateLimit = 20
	}
	w := &Worker{
		nodeID:                nodeID,
		conf:                  conf,
		secret:                secret,
		matches:               matches,
		broadcaster:           broadcaster,
		ConnectionRateLimiter: utils.NewRateLimiter(100, 200),
		maxConnectionCount:    100000,
		clients:               make(map[string]*LongConnection),
		rooms:                 make(map[string]*room),
		CheckOriginHandler: func(r *http.Request) bool {
			return true
		},
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start 阻塞监听 ws 端口，路径 /ws
func (w *Worker) Start(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/ws", w)
	w.server = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	log.Info("websocket 网关监听地址 %s", addr)
	if err := w.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (w *Worker) ServeHTTP(writer http.ResponseWriter, r *http.Request) {
	w.upgradeFunc(writer, r)
}

func (w *Worker) upgradeFunc(writer http.ResponseWriter, r *http.Request) {
	userID, err := w.identifyUser(r)
	if err != nil {
		http.Error(writer, "unauthorized", http.StatusUnauthorized)
		log.Warn("连接鉴权失败 remote=%s err=%v", r.RemoteAddr, err)
		return
	}
	if !w.ConnectionRateLimiter.Allow() {
		http.Error(writer, "Too many connections", http.StatusTooManyRequests)
		log.Warn("连接速率限流 exceeded from %s", r.RemoteAddr)
		return
	}
	if int(w.stats.currentConnections.Load()) >= w.maxConnectionCount {
		http.Error(writer, "Server is at capacity", http.StatusServiceUnavailable)
		log.Warn("连接达到阈值 %s", r.RemoteAddr)
		return
	}

	w.upgradeOnce.Do(w.initUpgrade)
	header := writer.Header()
	header.Add("Server", "yonmai")

	ws, err := w.websocketUpgrade.Upgrade(writer, r, nil)
	if err != nil {
		log.Warn("websocket 升级失败, err:%v", err)
		return
	}

	client := newLongConnection(ws, userID, w)
	w.bindUser(client)
	w.addClient(client)
	client.Run()
	log.Info("WebSocket 建立连接: userID=%s, connID=%s, remote=%s", userID, client.ConnID, r.RemoteAddr)
}

// identifyUser token 取自 query 参数或 Authorization 头
func (w *Worker) identifyUser(r *http.Request) (string, error) {
	token := r.URL.Query().Get("token")
	if token == "" {
		token = ghttp.BearerToken(r.Header.Get("Authorization"))
	}
	if token == "" {
		return "", errors.New("缺少 token")
	}
	if w.secret == "" {
		return "", errors.New("未配置 jwt secret")
	}
	return jwts.ParseToken(token, w.secret)
}

func (w *Worker) initUpgrade() {
	w.websocketUpgrade = &websocket.Upgrader{
		CheckOrigin:     w.CheckOriginHandler,
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
	}
}

// bindUser 同一用户只保留最新连接，旧连接被踢出
func (w *Worker) bindUser(con *LongConnection) {
	if old, ok := w.connMap.Swap(con.UserID, con); ok {
		if existing := old.(*LongConnection); existing != con {
			log.Info("用户 %s 已有连接，踢出旧连接 %s", con.UserID, existing.ConnID)
			existing.Close()
		}
	}
}

// isBound 连接是否仍是该用户的当前连接
func (w *Worker) isBound(con *LongConnection) bool {
	cur, ok := w.connMap.Load(con.UserID)
	return ok && cur.(*LongConnection) == con
}

func (w *Worker) addClient(con *LongConnection) {
	w.clientsLock.Lock()
	w.clients[con.ConnID] = con
	w.clientsLock.Unlock()
	w.stats.currentConnections.Add(1)
}

// removeClient 读协程退出时调用
func (w *Worker) removeClient(con *LongConnection) {
	w.clientsLock.Lock()
	_, ok := w.clients[con.ConnID]
	delete(w.clients, con.ConnID)
	w.clientsLock.Unlock()
	if !ok {
		return
	}
	con.Close()
	w.stats.currentConnections.Add(-1)

	// 被新连接顶替或网关关闭时不算离开
	bound := w.connMap.CompareAndDelete(con.UserID, con)
	for _, matchID := range con.Rooms() {
		w.leaveRoom(matchID, con)
		if bound && !w.closing.Load() {
			w.submitLeave(matchID, con.UserID)
		}
	}
	log.Info("客户端[%s] 连接关闭 userID=%s", con.ConnID, con.UserID)
}

func (w *Worker) ConnectionCount() int {
	return int(w.stats.currentConnections.Load())
}

// Close 关闭监听并断开所有连接
func (w *Worker) Close(ctx context.Context) error {
	w.closing.Store(true)
	var err error
	if w.server != nil {
		err = w.server.Shutdown(ctx)
	}
	w.clientsLock.RLock()
	clients := make([]*LongConnection, 0, len(w.clients))
	for _, c := range w.clients {
		clients = append(clients, c)
	}
	w.clientsLock.RUnlock()
	for _, c := range clients {
		c.Close()
	}

	w.roomsLock.Lock()
	for id, r := range w.rooms {
		r.unsubscribe()
		delete(w.rooms, id)
	}
	w.roomsLock.Unlock()
	log.Info("websocket 网关已关闭, processed=%d errors=%d",
		w.stats.messageProcessed.Load(), w.stats.messageErrors.Load())
	if err != nil {
		return fmt.Errorf("关闭 websocket 监听失败: %w", err)
	}
	return nil
}
