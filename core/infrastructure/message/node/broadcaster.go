package node

import (
	"sync"
)

// Broadcaster 对局房间级广播，至少一次送达，每条消息都是完整快照
type Broadcaster interface {
	Publish(matchID string, payload []byte) error
	// Subscribe 返回取消订阅函数
	Subscribe(matchID string, handler func(payload []byte)) (func(), error)
	Close() error
}

// LocalHub 单进程广播，网关与对局在同一节点时使用
type LocalHub struct {
	mu     sync.RWMutex
	nextID uint64
	subs   map[string]map[uint64]func([]byte)
	closed bool
}

func NewLocalHub() *LocalHub {
	return &LocalHub{subs: make(map[string]map[uint64]func([]byte))}
}

func (h *LocalHub) Publish(matchID string, payload []byte) error {
	h.mu.RLock()
	if h.closed {
		h.mu.RUnlock()
		return ErrNotConnected
	}
	handlers := make([]func([]byte), 0, len(h.subs[matchID]))
	for _, fn := range h.subs[matchID] {
		handlers = append(handlers, fn)
	}
	h.mu.RUnlock()

	for _, fn := range handlers {
		fn(payload)
	}
	return nil
}

func (h *LocalHub) Subscribe(matchID string, handler func([]byte)) (func(), error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, ErrNotConnected
	}
	h.nextID++
	id := h.nextID
	if h.subs[matchID] == nil {
		h.subs[matchID] = make(map[uint64]func([]byte))
	}
	h.subs[matchID][id] = handler

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.subs[matchID], id)
			if len(h.subs[matchID]) == 0 {
				delete(h.subs, matchID)
			}
		})
	}, nil
}

func (h *LocalHub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	h.subs = make(map[string]map[uint64]func([]byte))
	return nil
}
