package buffer

import (
	"math"
	"time"

	"trisense-monitor/internal/models"
)

// Baseline 患者基线（从最早的读数一次性建立，之后不再变化）
type Baseline struct {
	Mean          map[string]float64 `json:"mean"`
	Std           map[string]float64 `json:"std"` // 下限 1.0，避免除零放大
	EstablishedAt time.Time          `json:"established_at"`
	SampleSize    int                `json:"sample_size"`
}

// PatientBuffer 单个患者的滚动时间序列缓冲区
// 持有原始生命体征、风险分数历史和已学习的基线。
// 非并发安全：调用方必须保证同一患者的操作串行（见 monitor 包）。
type PatientBuffer struct {
	patientID       string
	maxSize         int
	baselineSamples int

	timestamps []time.Time
	readings   []models.VitalSigns

	riskHistory []models.RiskPoint

	baseline      *Baseline
	totalAppended int

	lastUpdate time.Time
	createdAt  time.Time
}

// NewPatientBuffer 创建患者缓冲区
// maxSize: 保留的最大读数数量（满时淘汰最旧）
// baselineSamples: 建立基线所需的读数数量（使用最早的这批读数）
func NewPatientBuffer(patientID string, maxSize, baselineSamples int) *PatientBuffer {
	return &PatientBuffer{
		patientID:       patientID,
		maxSize:         maxSize,
		baselineSamples: baselineSamples,
		createdAt:       time.Now(),
	}
}

// PatientID 患者标识
func (b *PatientBuffer) PatientID() string {
	return b.patientID
}

// Append 追加一条读数，满时淘汰最旧的一条
// 当累计追加数量首次达到 baselineSamples 时建立基线（仅一次）。
func (b *PatientBuffer) Append(vitals models.VitalSigns, timestamp time.Time) {
	if len(b.readings) >= b.maxSize {
		b.readings = b.readings[1:]
		b.timestamps = b.timestamps[1:]
	}
	b.readings = append(b.readings, vitals)
	b.timestamps = append(b.timestamps, timestamp)

	b.totalAppended++
	b.lastUpdate = timestamp

	// 基线来自最早的 baselineSamples 条读数快照，之后的漂移本身是信号，不被吸收
	if b.baseline == nil && b.totalAppended == b.baselineSamples && len(b.readings) >= b.baselineSamples {
		b.establishBaseline(timestamp)
	}
}

// AppendRiskScore 追加风险分数历史（与读数淘汰相互独立）
func (b *PatientBuffer) AppendRiskScore(score float64, timestamp time.Time) {
	if len(b.riskHistory) >= b.maxSize {
		b.riskHistory = b.riskHistory[1:]
	}
	b.riskHistory = append(b.riskHistory, models.RiskPoint{
		Timestamp: timestamp,
		RiskScore: score,
	})
}

// Size 当前缓冲区中的读数数量
func (b *PatientBuffer) Size() int {
	return len(b.readings)
}

// Latest 最近一条读数；缓冲区为空时返回 false
func (b *PatientBuffer) Latest() (models.VitalSigns, bool) {
	if len(b.readings) == 0 {
		return models.VitalSigns{}, false
	}
	return b.readings[len(b.readings)-1], true
}

// Window 返回最近 size 条读数，按体征名组织为并行序列
// 不足 size 条时返回全部，不做填充。
func (b *PatientBuffer) Window(size int) map[string][]float64 {
	n := len(b.readings)
	start := n - size
	if start < 0 {
		start = 0
	}

	window := make(map[string][]float64, len(models.AllVitals))
	for _, name := range models.AllVitals {
		series := make([]float64, 0, n-start)
		for i := start; i < n; i++ {
			series = append(series, b.readings[i].Get(name))
		}
		window[name] = series
	}
	return window
}

// HasBaseline 基线是否已建立
func (b *PatientBuffer) HasBaseline() bool {
	return b.baseline != nil
}

// Baseline 已建立的基线，未建立时返回 nil
func (b *PatientBuffer) Baseline() *Baseline {
	return b.baseline
}

// DeviationFromBaseline 每个体征相对基线的 z-score
// 未建立基线或缓冲区为空时返回空映射（调用方视为"数据不足"，而非零风险）。
func (b *PatientBuffer) DeviationFromBaseline() map[string]float64 {
	if b.baseline == nil || len(b.readings) == 0 {
		return map[string]float64{}
	}

	latest := b.readings[len(b.readings)-1]
	deviations := make(map[string]float64, len(models.AllVitals))
	for _, name := range models.AllVitals {
		mean := b.baseline.Mean[name]
		std := b.baseline.Std[name]
		deviations[name] = (latest.Get(name) - mean) / std
	}
	return deviations
}

// RiskHistory 最近 limit 条风险分数
func (b *PatientBuffer) RiskHistory(limit int) []models.RiskPoint {
	n := len(b.riskHistory)
	start := n - limit
	if start < 0 {
		start = 0
	}
	out := make([]models.RiskPoint, n-start)
	copy(out, b.riskHistory[start:])
	return out
}

// VitalTrends 最近 limit 条读数的体征序列（用于图表展示）
func (b *PatientBuffer) VitalTrends(limit int) (map[string][]float64, []time.Time) {
	n := len(b.readings)
	start := n - limit
	if start < 0 {
		start = 0
	}

	trends := b.Window(n - start)
	timestamps := make([]time.Time, n-start)
	copy(timestamps, b.timestamps[start:])
	return trends, timestamps
}

// LastUpdate 最近一次追加的时间戳
func (b *PatientBuffer) LastUpdate() time.Time {
	return b.lastUpdate
}

// IsStale 是否长时间无更新
func (b *PatientBuffer) IsStale(threshold time.Duration) bool {
	if b.lastUpdate.IsZero() {
		return true
	}
	return time.Since(b.lastUpdate) > threshold
}

// establishBaseline 从最早的 baselineSamples 条读数建立基线
func (b *PatientBuffer) establishBaseline(at time.Time) {
	mean := make(map[string]float64, len(models.AllVitals))
	std := make(map[string]float64, len(models.AllVitals))

	for _, name := range models.AllVitals {
		values := make([]float64, b.baselineSamples)
		for i := 0; i < b.baselineSamples; i++ {
			values[i] = b.readings[i].Get(name)
		}
		m, s := meanStd(values)
		mean[name] = m
		// 标准差下限 1.0：早期读数过于平稳时防止 z-score 爆炸
		if s < 1.0 {
			s = 1.0
		}
		std[name] = s
	}

	b.baseline = &Baseline{
		Mean:          mean,
		Std:           std,
		EstablishedAt: at,
		SampleSize:    b.baselineSamples,
	}
}

// meanStd 均值与总体标准差
func meanStd(values []float64) (float64, float64) {
	if len(values) == 0 {
		return 0, 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))

	var sq float64
	for _, v := range values {
		d := v - mean
		sq += d * d
	}
	return mean, math.Sqrt(sq / float64(len(values)))
}
