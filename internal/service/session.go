package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/langchou/solarsizer/internal/api/sizing"
	"github.com/langchou/solarsizer/internal/equipment"
	"github.com/langchou/solarsizer/internal/models"
	"github.com/langchou/solarsizer/internal/render"
	"github.com/langchou/solarsizer/internal/state"
	"github.com/langchou/solarsizer/pkg/ws"
)

// ErrStaleResponse 有更新的提交，本次结果被丢弃
var ErrStaleResponse = errors.New("superseded by a newer submission")

// SizingClient 计算服务
type SizingClient interface {
	Submit(ctx context.Context, req *sizing.Request) (*sizing.Response, error)
}

// Publisher 推送消息给会话的浏览器
type Publisher interface {
	Publish(sessionID, msgType string, data interface{})
	CloseSession(sessionID string)
}

type nopPublisher struct{}

func (nopPublisher) Publish(string, string, interface{}) {}

func (nopPublisher) CloseSession(string) {}

// Notification 提示消息，Blocking 表示需要用户确认
type Notification struct {
	Kind     string `json:"kind"`
	Message  string `json:"message"`
	Blocking bool   `json:"blocking"`
}

// EquipmentView 设备及其界面状态
type EquipmentView struct {
	models.EquipmentEntry
	Label          string `json:"label"`
	AdvancedFields bool   `json:"advanced_fields"`
}

// NewEquipmentView 高级字段可见性每次由类型计算
func NewEquipmentView(e models.EquipmentEntry) EquipmentView {
	return EquipmentView{
		EquipmentEntry: e,
		Label:          e.Type.Label(),
		AdvancedFields: models.AdvancedFieldsVisible(e.Type),
	}
}

type userMessage interface {
	Message() string
}

// Session 一个浏览器会话：设备列表、最新提交序号和结果区域
type Session struct {
	ID        string
	CreatedAt time.Time

	logger    *zap.Logger
	client    SizingClient
	publisher Publisher
	metrics   *Metrics

	registry *equipment.Registry
	renderer *render.Renderer
	machine  *state.Machine

	// 保护 latest，并保证序号检查与渲染是原子的
	mu     sync.Mutex
	latest uint64

	lastUsed atomic.Int64
}

// NewSession 创建会话并预置一条设备
func NewSession(id string, logger *zap.Logger, client SizingClient, publisher Publisher, metrics *Metrics) *Session {
	if publisher == nil {
		publisher = nopPublisher{}
	}

	s := &Session{
		ID:        id,
		CreatedAt: time.Now(),
		logger:    logger.With(zap.String("session_id", id)),
		client:    client,
		publisher: publisher,
		metrics:   metrics,
		registry:  equipment.NewRegistry(),
		renderer:  render.NewRenderer(),
	}
	s.machine = state.NewMachine(id, s.onStateChange)
	s.registry.Add()
	s.touch()

	return s
}

// onStateChange 在状态机锁内调用，不能回调 machine
func (s *Session) onStateChange(sessionID, from, to string) {
	s.logger.Debug("Submission state changed", zap.String("from", from), zap.String("to", to))
	s.publisher.Publish(sessionID, ws.MsgTypeStatus, map[string]string{
		"from": from,
		"to":   to,
	})
}

func (s *Session) touch() {
	s.lastUsed.Store(time.Now().UnixNano())
}

// LastUsed 最后活跃时间
func (s *Session) LastUsed() time.Time {
	return time.Unix(0, s.lastUsed.Load())
}

// Equipments 当前设备列表
func (s *Session) Equipments() []EquipmentView {
	entries := s.registry.Snapshot()
	views := make([]EquipmentView, 0, len(entries))
	for _, e := range entries {
		views = append(views, NewEquipmentView(e))
	}
	return views
}

func (s *Session) publishEquipments() {
	s.publisher.Publish(s.ID, ws.MsgTypeEquipments, s.Equipments())
}

// AddEquipment 添加一条默认设备
func (s *Session) AddEquipment() EquipmentView {
	s.touch()
	entry := s.registry.Add()
	s.publishEquipments()
	return NewEquipmentView(entry)
}

// RemoveEquipment 删除设备，不存在时忽略
func (s *Session) RemoveEquipment(id int64) {
	s.touch()
	s.registry.Remove(id)
	s.publishEquipments()
}

// GetEquipment 获取单个设备
func (s *Session) GetEquipment(id int64) (EquipmentView, bool) {
	entry, ok := s.registry.Get(id)
	if !ok {
		return EquipmentView{}, false
	}
	return NewEquipmentView(entry), true
}

// UpdateEquipment 修改单个字段
func (s *Session) UpdateEquipment(id int64, field equipment.Field, value string) (EquipmentView, error) {
	s.touch()
	entry, err := s.registry.UpdateField(id, field, value)
	if err != nil {
		return EquipmentView{}, err
	}
	s.publishEquipments()
	return NewEquipmentView(entry), nil
}

// Results 当前结果区域
func (s *Session) Results() render.View {
	return s.renderer.View()
}

// Status 当前提交状态
func (s *Session) Status() *state.Status {
	return s.machine.GetStatus()
}

// Submit 提交当前设备列表
// 每次提交分配递增序号，只有最新序号的响应会被渲染
func (s *Session) Submit(ctx context.Context, region, autonomyDays string) (*render.View, error) {
	s.touch()

	req, err := sizing.Build(region, autonomyDays, s.registry)
	if err != nil {
		var verr *sizing.ValidationError
		if errors.As(err, &verr) {
			s.metrics.observeOutcome(OutcomeValidation)
			s.notify("validation", verr.Message(), false)
		}
		return nil, err
	}

	s.mu.Lock()
	s.latest++
	seq := s.latest
	s.mu.Unlock()

	if err := s.machine.Trigger(state.EventSubmit); err != nil {
		s.logger.Warn("Failed to trigger submit", zap.Error(err))
	}

	s.logger.Info("Submitting equipment list",
		zap.Uint64("seq", seq),
		zap.Int("equipments", len(req.Equipments)),
		zap.String("region", region))

	start := time.Now()
	resp, err := s.client.Submit(ctx, req)
	s.metrics.observeLatency(time.Since(start))

	s.mu.Lock()
	defer s.mu.Unlock()

	if seq != s.latest {
		s.metrics.observeOutcome(OutcomeStale)
		s.logger.Info("Discarding stale sizing response",
			zap.Uint64("seq", seq),
			zap.Uint64("latest", s.latest))
		return nil, ErrStaleResponse
	}

	if err == nil {
		err = s.renderer.Render(resp)
	}
	if err != nil {
		var merr *sizing.MalformedResponseError
		if errors.As(err, &merr) {
			s.metrics.observeOutcome(OutcomeMalformed)
			s.fail(seq, "malformed", err)
			return nil, err
		}
		s.metrics.observeOutcome(OutcomeTransport)
		s.fail(seq, "transport", err)
		return nil, err
	}

	if err := s.machine.Trigger(state.EventRender); err != nil {
		s.logger.Warn("Failed to trigger render", zap.Error(err))
	}
	s.machine.UpdateStatus(func(st *state.Status) {
		st.Sequence = seq
		st.LastError = ""
	})
	s.metrics.observeOutcome(OutcomeRendered)

	view := s.renderer.View()
	s.publisher.Publish(s.ID, ws.MsgTypeResults, view)
	s.logger.Info("Sizing results rendered",
		zap.Uint64("seq", seq),
		zap.Int("options", len(view.Options)),
		zap.Int("warnings", len(view.Warnings)))

	return &view, nil
}

// fail 记录失败并提示用户，结果区域保持不变
func (s *Session) fail(seq uint64, kind string, err error) {
	s.logger.Error("Sizing submission failed", zap.Uint64("seq", seq), zap.Error(err))

	if terr := s.machine.Trigger(state.EventFail); terr != nil {
		s.logger.Warn("Failed to trigger fail", zap.Error(terr))
	}

	msg := sizing.MsgServerUnreachable
	var um userMessage
	if errors.As(err, &um) {
		msg = um.Message()
	}

	s.machine.UpdateStatus(func(st *state.Status) {
		st.Sequence = seq
		st.LastError = msg
	})
	s.notify(kind, msg, true)
}

func (s *Session) notify(kind, message string, blocking bool) {
	s.publisher.Publish(s.ID, ws.MsgTypeNotification, Notification{
		Kind:     kind,
		Message:  message,
		Blocking: blocking,
	})
}

// InitData WebSocket 连接时的初始数据
func (s *Session) InitData() map[string]interface{} {
	return map[string]interface{}{
		"equipments": s.Equipments(),
		"results":    s.Results(),
		"status":     s.Status(),
	}
}
