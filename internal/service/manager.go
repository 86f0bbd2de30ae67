package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrSessionNotFound 会话不存在或已过期
var ErrSessionNotFound = errors.New("session not found")

// ManagerOptions 会话管理参数
type ManagerOptions struct {
	IdleTimeout   time.Duration
	SweepInterval time.Duration
}

// Manager 会话管理器，所有状态只保存在内存中
type Manager struct {
	logger    *zap.Logger
	client    SizingClient
	publisher Publisher
	metrics   *Metrics
	opts      ManagerOptions

	mu       sync.RWMutex
	sessions map[string]*Session

	stopCh  chan struct{}
	wg      sync.WaitGroup
	running bool
}

// NewManager 创建管理器
func NewManager(logger *zap.Logger, client SizingClient, publisher Publisher, metrics *Metrics, opts ManagerOptions) *Manager {
	if publisher == nil {
		publisher = nopPublisher{}
	}
	return &Manager{
		logger:    logger,
		client:    client,
		publisher: publisher,
		metrics:   metrics,
		opts:      opts,
		sessions:  make(map[string]*Session),
	}
}

// Create 创建新会话
func (m *Manager) Create() *Session {
	s := NewSession(uuid.NewString(), m.logger, m.client, m.publisher, m.metrics)

	m.mu.Lock()
	m.sessions[s.ID] = s
	n := len(m.sessions)
	m.mu.Unlock()

	m.metrics.setActiveSessions(n)
	m.logger.Info("Session created", zap.String("session_id", s.ID), zap.Int("active", n))
	return s
}

// Get 获取会话
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Close 结束会话，丢弃其全部状态并断开推送连接
func (m *Manager) Close(id string) error {
	m.mu.Lock()
	_, ok := m.sessions[id]
	delete(m.sessions, id)
	n := len(m.sessions)
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}

	m.metrics.setActiveSessions(n)
	m.publisher.CloseSession(id)
	m.logger.Info("Session closed", zap.String("session_id", id))
	return nil
}

// Count 会话数量
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// InitData 提供给 WebSocket Hub，会话不存在时返回 nil
func (m *Manager) InitData(sessionID string) interface{} {
	s, ok := m.Get(sessionID)
	if !ok {
		return nil
	}
	return s.InitData()
}

// Start 启动过期会话清理
func (m *Manager) Start(ctx context.Context) {
	m.mu.Lock()
	if m.running || m.opts.IdleTimeout <= 0 {
		m.mu.Unlock()
		return
	}
	m.stopCh = make(chan struct{})
	m.running = true
	m.mu.Unlock()

	interval := m.opts.SweepInterval
	if interval <= 0 {
		interval = time.Minute
	}

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-m.stopCh:
				return
			case now := <-ticker.C:
				if n := m.Sweep(now); n > 0 {
					m.logger.Info("Expired idle sessions", zap.Int("count", n))
				}
			}
		}
	}()
}

// Stop 停止清理
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	close(m.stopCh)
	m.mu.Unlock()

	m.wg.Wait()
}

// Sweep 删除空闲超时的会话，返回删除数量
func (m *Manager) Sweep(now time.Time) int {
	if m.opts.IdleTimeout <= 0 {
		return 0
	}

	m.mu.Lock()
	var expired []string
	for id, s := range m.sessions {
		if now.Sub(s.LastUsed()) > m.opts.IdleTimeout {
			delete(m.sessions, id)
			expired = append(expired, id)
		}
	}
	n := len(m.sessions)
	m.mu.Unlock()

	for _, id := range expired {
		m.publisher.CloseSession(id)
	}
	if len(expired) > 0 {
		m.metrics.setActiveSessions(n)
	}
	return len(expired)
}
