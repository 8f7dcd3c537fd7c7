package monitor

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"trisense-monitor/internal/buffer"
	"trisense-monitor/internal/consensus"
	"trisense-monitor/internal/models"
)

// session 单个患者的在线监护会话
// mu 为会话独占锁：同一患者的 追加→评估→记录 全程持锁，保证串行化；
// 不同患者互不阻塞。
type session struct {
	mu  sync.Mutex
	buf *buffer.PatientBuffer
}

// SessionSnapshot 患者会话的只读快照（查询接口使用）
type SessionSnapshot struct {
	PatientID    string                `json:"patient_id"`
	Readings     int                   `json:"readings"`
	HasBaseline  bool                  `json:"has_baseline"`
	Baseline     map[string][2]float64 `json:"baseline,omitempty"` // vital -> [mean, std]
	LatestVitals *models.VitalSigns    `json:"latest_vitals,omitempty"`
	RiskHistory  []models.RiskPoint    `json:"risk_history"`
	LastUpdate   time.Time             `json:"last_update"`
}

// Monitor 患者会话注册表与评估入口
// 会话按患者 ID 懒创建，过期会话由后台清扫回收。
type Monitor struct {
	mu       sync.RWMutex
	sessions map[string]*session

	coordinator     *consensus.Coordinator
	maxSize         int
	baselineSamples int
	logger          *zap.Logger
}

// NewMonitor 创建监护注册表
func NewMonitor(coordinator *consensus.Coordinator, maxSize, baselineSamples int, logger *zap.Logger) *Monitor {
	return &Monitor{
		sessions:        make(map[string]*session),
		coordinator:     coordinator,
		maxSize:         maxSize,
		baselineSamples: baselineSamples,
		logger:          logger,
	}
}

// Ingest 接收一次体征读数并完成整条评估流水线
// 对同一患者严格串行；评估期间持有该患者的会话锁，
// 外部评分/推理调用的超时由各自客户端限定。
func (m *Monitor) Ingest(ctx context.Context, reading models.VitalReading) models.DashboardUpdate {
	s := m.getOrCreate(reading.PatientID)

	s.mu.Lock()
	defer s.mu.Unlock()

	ts := reading.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	s.buf.Append(reading.Vitals, ts)

	return m.coordinator.Assess(ctx, s.buf)
}

// Snapshot 返回指定患者的会话快照
func (m *Monitor) Snapshot(patientID string) (SessionSnapshot, bool) {
	m.mu.RLock()
	s, ok := m.sessions[patientID]
	m.mu.RUnlock()
	if !ok {
		return SessionSnapshot{}, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snap := SessionSnapshot{
		PatientID:   patientID,
		Readings:    s.buf.Size(),
		HasBaseline: s.buf.HasBaseline(),
		RiskHistory: s.buf.RiskHistory(50),
		LastUpdate:  s.buf.LastUpdate(),
	}
	if latest, ok := s.buf.Latest(); ok {
		snap.LatestVitals = &latest
	}
	if bl := s.buf.Baseline(); bl != nil {
		snap.Baseline = make(map[string][2]float64, len(bl.Mean))
		for vital, mean := range bl.Mean {
			snap.Baseline[vital] = [2]float64{mean, bl.Std[vital]}
		}
	}
	return snap, true
}

// ActivePatients 当前有会话的患者 ID（排序后）
func (m *Monitor) ActivePatients() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// EndSession 结束患者会话并释放所有关联状态
// 缓冲、基线缓存、告警历史一并清除；不存在时为空操作。
func (m *Monitor) EndSession(patientID string) {
	m.mu.Lock()
	_, ok := m.sessions[patientID]
	delete(m.sessions, patientID)
	m.mu.Unlock()

	if !ok {
		return
	}
	m.coordinator.EndSession(patientID)
	m.logger.Info("Patient session ended",
		zap.String("patient_id", patientID),
	)
}

// SweepStale 回收超过 staleAfter 未收到读数的会话，返回被回收的患者 ID
func (m *Monitor) SweepStale(staleAfter time.Duration) []string {
	m.mu.RLock()
	var stale []string
	for id, s := range m.sessions {
		// 缓冲区读取必须持会话锁，避免与 Ingest 的写入竞争
		s.mu.Lock()
		isStale := s.buf.IsStale(staleAfter)
		s.mu.Unlock()
		if isStale {
			stale = append(stale, id)
		}
	}
	m.mu.RUnlock()

	for _, id := range stale {
		m.EndSession(id)
	}
	if len(stale) > 0 {
		m.logger.Info("Stale patient sessions swept",
			zap.Int("count", len(stale)),
			zap.Strings("patient_ids", stale),
		)
	}
	return stale
}

// RunSweeper 周期性清扫过期会话，ctx 取消时退出
func (m *Monitor) RunSweeper(ctx context.Context, interval, staleAfter time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.SweepStale(staleAfter)
		}
	}
}

func (m *Monitor) getOrCreate(patientID string) *session {
	m.mu.RLock()
	s, ok := m.sessions[patientID]
	m.mu.RUnlock()
	if ok {
		return s
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok = m.sessions[patientID]; ok {
		return s
	}
	s = &session{
		buf: buffer.NewPatientBuffer(patientID, m.maxSize, m.baselineSamples),
	}
	m.sessions[patientID] = s
	m.logger.Info("Patient session started",
		zap.String("patient_id", patientID),
	)
	return s
}
