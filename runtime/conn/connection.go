package conn

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"yonmai/common/log"
	"yonmai/common/utils"
	"yonmai/core/infrastructure/message/transfer"
)

const writeWait = 10 * time.Second

var connIDBase atomic.Uint64

// LongConnection 一个玩家的一条 websocket 连接
type LongConnection struct {
	ConnID  string
	UserID  string
	Conn    *websocket.Conn
	limiter *utils.RateLimiter
	worker  *Worker

	writeChan chan []byte
	closeChan chan struct{}
	closeOnce sync.Once

	mu    sync.Mutex
	rooms map[string]struct{}
}

func newLongConnection(ws *websocket.Conn, userID string, w *Worker) *LongConnection {
	return &LongConnection{
		ConnID:    fmt.Sprintf("%s-%d", w.nodeID, connIDBase.Add(1)),
		UserID:    userID,
		Conn:      ws,
		limiter:   utils.NewRateLimiter(w.conf.RateLimit, w.conf.RateLimit),
		worker:    w,
		writeChan: make(chan []byte, w.conf.SendQueueSize),
		closeChan: make(chan struct{}),
		rooms:     make(map[string]struct{}),
	}
}

func (con *LongConnection) Run() {
	go con.readMessage()
	go con.writeMessage()
}

func (con *LongConnection) pongWait() time.Duration {
	return time.Duration(con.worker.conf.PongWait) * time.Second
}

func (con *LongConnection) writeMessage() {
	ticker := time.NewTicker(con.pongWait() * 9 / 10)
	defer func() {
		ticker.Stop()
		// 关闭底层连接后读协程随之退出
		_ = con.Conn.Close()
	}()

	for {
		select {
		case message := <-con.writeChan:
			_ = con.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := con.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Warn("客户端[%s] 写入失败: %v", con.ConnID, err)
				con.Close()
				return
			}
		case <-ticker.C:
			_ = con.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := con.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Debug("客户端[%s] ping 失败: %v", con.ConnID, err)
				con.Close()
				return
			}
		case <-con.closeChan:
			_ = con.Conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
			return
		}
	}
}

func (con *LongConnection) readMessage() {
	defer con.worker.removeClient(con)

	con.Conn.SetReadLimit(int64(con.worker.conf.ReadLimit))
	_ = con.Conn.SetReadDeadline(time.Now().Add(con.pongWait()))
	con.Conn.SetPongHandler(func(string) error {
		return con.Conn.SetReadDeadline(time.Now().Add(con.pongWait()))
	})

	for {
		messageType, message, err := con.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn("客户端[%s] 异常断开: %v", con.ConnID, err)
			}
			return
		}
		if messageType != websocket.TextMessage && messageType != websocket.BinaryMessage {
			continue
		}
		con.worker.handleFrame(con, message)
	}
}

// SendMessage 非阻塞写入发送队列；队列满说明客户端太慢，直接断开让其重连后全量同步
func (con *LongConnection) SendMessage(buf []byte) error {
	if con.closed() {
		return transfer.ErrConnectionClosed
	}
	select {
	case con.writeChan <- buf:
		return nil
	default:
		log.Warn("客户端[%s] 发送队列已满，断开连接", con.ConnID)
		con.Close()
		return transfer.ErrSendChanFull
	}
}

func (con *LongConnection) Close() {
	con.closeOnce.Do(func() {
		close(con.closeChan)
	})
}

func (con *LongConnection) closed() bool {
	select {
	case <-con.closeChan:
		return true
	default:
		return false
	}
}

func (con *LongConnection) addRoom(matchID string) {
	con.mu.Lock()
	con.rooms[matchID] = struct{}{}
	con.mu.Unlock()
}

func (con *LongConnection) removeRoom(matchID string) {
	con.mu.Lock()
	delete(con.rooms, matchID)
	con.mu.Unlock()
}

func (con *LongConnection) Rooms() []string {
	con.mu.Lock()
	defer con.mu.Unlock()
	ids := make([]string, 0, len(con.rooms))
	for id := range con.rooms {
		ids = append(ids, id)
	}
	return ids
}
