package state

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/looplab/fsm"
)

// 提交状态常量
const (
	StateIdle       = "idle"
	StateSubmitting = "submitting"
	StateRendered   = "rendered"
	StateFailed     = "failed"
)

// 事件常量
const (
	EventSubmit = "submit"
	EventRender = "render"
	EventFail   = "fail"
)

// Status 会话的提交状态
type Status struct {
	SessionID    string    `json:"session_id"`
	CurrentState string    `json:"state"`
	Since        time.Time `json:"since"`
	Sequence     uint64    `json:"sequence"`
	LastError    string    `json:"last_error,omitempty"`
}

// Machine 提交状态机
type Machine struct {
	mu            sync.RWMutex
	sessionID     string
	fsm           *fsm.FSM
	status        *Status
	onStateChange func(sessionID, from, to string)
}

// NewMachine 创建状态机
func NewMachine(sessionID string, onStateChange func(sessionID, from, to string)) *Machine {
	m := &Machine{
		sessionID:     sessionID,
		onStateChange: onStateChange,
		status: &Status{
			SessionID:    sessionID,
			CurrentState: StateIdle,
			Since:        time.Now(),
		},
	}

	m.fsm = fsm.NewFSM(
		StateIdle,
		fsm.Events{
			// 任何状态都可以重新提交
			{Name: EventSubmit, Src: []string{StateIdle, StateSubmitting, StateRendered, StateFailed}, Dst: StateSubmitting},

			// 从 submitting 状态
			{Name: EventRender, Src: []string{StateSubmitting}, Dst: StateRendered},
			{Name: EventFail, Src: []string{StateSubmitting}, Dst: StateFailed},
		},
		fsm.Callbacks{
			"after_event": func(ctx context.Context, e *fsm.Event) {
				if m.onStateChange != nil && e.Src != e.Dst {
					m.onStateChange(m.sessionID, e.Src, e.Dst)
				}
			},
		},
	)

	return m
}

// CurrentState 获取当前状态
func (m *Machine) CurrentState() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.fsm.Current()
}

// GetStatus 获取完整状态
func (m *Machine) GetStatus() *Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	// 返回副本
	statusCopy := *m.status
	statusCopy.CurrentState = m.fsm.Current()
	return &statusCopy
}

// UpdateStatus 更新状态数据
func (m *Machine) UpdateStatus(update func(s *Status)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	update(m.status)
}

// Trigger 触发事件，状态未变化不视为错误
func (m *Machine) Trigger(event string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.fsm.Event(context.Background(), event); err != nil {
		var noTransition fsm.NoTransitionError
		if errors.As(err, &noTransition) {
			return nil
		}
		return fmt.Errorf("trigger event %s: %w", event, err)
	}

	m.status.CurrentState = m.fsm.Current()
	m.status.Since = time.Now()
	return nil
}

// CanTransition 检查是否可以转换
func (m *Machine) CanTransition(event string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.fsm.Can(event)
}
