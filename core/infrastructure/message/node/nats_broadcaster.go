package node

import (
	"errors"
	"sync"

	"github.com/nats-io/nats.go"

	"yonmai/common/log"
	"yonmai/core/infrastructure/message/transfer"
)

var ErrNotConnected = errors.New("broadcaster not connected")

// NatsBroadcaster 通过 nats 主题 match.state.<id> 广播，多个网关节点各自订阅
type NatsBroadcaster struct {
	conn *nats.Conn
	mu   sync.Mutex
	subs map[*nats.Subscription]struct{}
}

func NewNatsBroadcaster(url, name string) (*NatsBroadcaster, error) {
	log.Info("nats 服务正在连接, url:%s", url)
	conn, err := nats.Connect(url,
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn("nats 连接断开: %v", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Info("nats 已重连 url:%s", c.ConnectedUrl())
		}),
	)
	if err != nil {
		log.Error("nats 连接错误,err:%v", err)
		return nil, err
	}
	log.Info("nats 连接成功, url:%s", url)
	return &NatsBroadcaster{conn: conn, subs: make(map[*nats.Subscription]struct{})}, nil
}

func (b *NatsBroadcaster) IsConnected() bool {
	return b.conn != nil && b.conn.IsConnected()
}

func (b *NatsBroadcaster) Publish(matchID string, payload []byte) error {
	if b.conn == nil || b.conn.IsClosed() {
		return ErrNotConnected
	}
	// 断线期间 nats 客户端会缓冲，重连后补发
	return b.conn.Publish(transfer.StateSubject(matchID), payload)
}

func (b *NatsBroadcaster) Subscribe(matchID string, handler func([]byte)) (func(), error) {
	if b.conn == nil || b.conn.IsClosed() {
		return nil, ErrNotConnected
	}
	sub, err := b.conn.Subscribe(transfer.StateSubject(matchID), func(msg *nats.Msg) {
		handler(msg.Data)
	})
	if err != nil {
		log.Error("nats sub err:%v", err)
		return nil, err
	}
	b.mu.Lock()
	b.subs[sub] = struct{}{}
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		_, ok := b.subs[sub]
		delete(b.subs, sub)
		b.mu.Unlock()
		if ok {
			_ = sub.Unsubscribe()
		}
	}, nil
}

func (b *NatsBroadcaster) Close() error {
	if b.conn == nil {
		return nil
	}
	if err := b.conn.Drain(); err != nil {
		b.conn.Close()
	}
	log.Info("NATS 连接已关闭")
	return nil
}

var (
	_ Broadcaster = (*LocalHub)(nil)
	_ Broadcaster = (*NatsBroadcaster)(nil)
)
