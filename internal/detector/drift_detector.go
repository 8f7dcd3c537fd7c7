package detector

import (
	"math"
	"sort"
	"sync"

	"go.uber.org/zap"

	"trisense-monitor/internal/buffer"
	"trisense-monitor/internal/models"
)

// 漂移严重度（|z| 分档）
const (
	DriftNormal   = "NORMAL"
	DriftMild     = "MILD"
	DriftModerate = "MODERATE"
	DriftSevere   = "SEVERE"
	DriftCritical = "CRITICAL"
)

// 漂移方向
const (
	DirectionElevated  = "ELEVATED"
	DirectionDecreased = "DECREASED"
	DirectionStable    = "STABLE"
)

// 漂移阈值（标准差数）
var driftThresholds = struct {
	mild, moderate, severe, critical float64
}{1.5, 2.0, 2.5, 3.0}

// 体征临床重要性权重（总和 1.0；血压与血氧权重高于体温）
var vitalWeights = map[string]float64{
	models.VitalHeartRate:       0.20,
	models.VitalSystolicBP:      0.25,
	models.VitalDiastolicBP:     0.10,
	models.VitalRespiratoryRate: 0.15,
	models.VitalSpO2:            0.20,
	models.VitalTemperature:     0.10,
}

// 无基线时使用的人群默认值
var populationDefaults = map[string]float64{
	models.VitalHeartRate:       80.0,
	models.VitalSystolicBP:      120.0,
	models.VitalDiastolicBP:     80.0,
	models.VitalRespiratoryRate: 16.0,
	models.VitalSpO2:            98.0,
	models.VitalTemperature:     37.0,
}

// ConcerningDrift 需要关注的漂移项（供解释文本使用）
type ConcerningDrift struct {
	Vital     string  `json:"vital"`
	ZScore    float64 `json:"zscore"`
	Severity  string  `json:"severity"`
	Direction string  `json:"direction"`
}

// DriftResult 单次漂移评估结果
type DriftResult struct {
	Deviations map[string]float64 // 体征 → z-score
	RiskScore  float64            // [0,1] 安全边际加权
	Confidence float64
	Concerning []ConcerningDrift // 按 |z| 降序，最多 3 项
	Reasoning  string
}

// DriftDetector 基线漂移检测器
// 量化当前体征偏离患者自身基线的程度。持有按患者键控的基线缓存，
// 缓存访问加锁，不同患者的评估可并发进行。
type DriftDetector struct {
	mu        sync.RWMutex
	baselines map[string]*buffer.Baseline
	logger    *zap.Logger
}

// NewDriftDetector 创建漂移检测器
func NewDriftDetector(logger *zap.Logger) *DriftDetector {
	return &DriftDetector{
		baselines: make(map[string]*buffer.Baseline),
		logger:    logger,
	}
}

// Detect 评估当前体征相对基线的漂移
// 缓存中无基线时先尝试从缓冲区拉取；都没有则返回零贡献（不是错误）。
func (d *DriftDetector) Detect(patientID string, buf *buffer.PatientBuffer) DriftResult {
	deviations := d.deviations(patientID, buf)
	risk := d.riskScore(deviations)

	concerning := d.concerningDrifts(deviations)

	return DriftResult{
		Deviations: deviations,
		RiskScore:  risk,
		Confidence: math.Min(0.9, 0.5+risk*0.5),
		Concerning: concerning,
		Reasoning:  d.reasoning(concerning, risk),
	}
}

// Forget 丢弃某个患者的缓存基线（会话结束时调用）
func (d *DriftDetector) Forget(patientID string) {
	d.mu.Lock()
	delete(d.baselines, patientID)
	d.mu.Unlock()
}

// deviations 每个体征的 z-score
func (d *DriftDetector) deviations(patientID string, buf *buffer.PatientBuffer) map[string]float64 {
	// 缓冲区有基线时直接使用（同时回填缓存）
	if buf.HasBaseline() {
		d.mu.Lock()
		d.baselines[patientID] = buf.Baseline()
		d.mu.Unlock()
		return buf.DeviationFromBaseline()
	}

	d.mu.RLock()
	cached, ok := d.baselines[patientID]
	d.mu.RUnlock()
	if !ok {
		// 既无缓存也无缓冲区基线：无信号
		return map[string]float64{}
	}

	latest, hasLatest := buf.Latest()
	if !hasLatest {
		return map[string]float64{}
	}

	deviations := make(map[string]float64, len(models.AllVitals))
	for _, vital := range models.AllVitals {
		mean, okMean := cached.Mean[vital]
		if !okMean {
			mean = populationDefaults[vital]
		}
		std := cached.Std[vital]
		if std < 1.0 {
			std = 1.0
		}
		deviations[vital] = (latest.Get(vital) - mean) / std
	}
	return deviations
}

// riskScore 按临床重要性权重合成 0-1 风险
// 每个体征 min(|z|/3, 1)：3 个标准差视为最大贡献，钳制离群值。
func (d *DriftDetector) riskScore(deviations map[string]float64) float64 {
	if len(deviations) == 0 {
		return 0
	}

	var weighted float64
	for vital, z := range deviations {
		weight, ok := vitalWeights[vital]
		if !ok {
			weight = 0.1
		}
		weighted += weight * math.Min(math.Abs(z)/3.0, 1.0)
	}
	return math.Min(weighted, 1.0)
}

// Severity |z| 对应的严重度分档
func (d *DriftDetector) Severity(zscore float64) string {
	absZ := math.Abs(zscore)
	switch {
	case absZ >= driftThresholds.critical:
		return DriftCritical
	case absZ >= driftThresholds.severe:
		return DriftSevere
	case absZ >= driftThresholds.moderate:
		return DriftModerate
	case absZ >= driftThresholds.mild:
		return DriftMild
	}
	return DriftNormal
}

// Direction z-score 对应的漂移方向
func (d *DriftDetector) Direction(zscore float64) string {
	switch {
	case zscore > 0.5:
		return DirectionElevated
	case zscore < -0.5:
		return DirectionDecreased
	}
	return DirectionStable
}

// concerningDrifts 达到 MODERATE 及以上的漂移项，按 |z| 降序取前 3
func (d *DriftDetector) concerningDrifts(deviations map[string]float64) []ConcerningDrift {
	var concerning []ConcerningDrift
	for _, vital := range models.AllVitals {
		z, ok := deviations[vital]
		if !ok {
			continue
		}
		severity := d.Severity(z)
		if severity == DriftModerate || severity == DriftSevere || severity == DriftCritical {
			concerning = append(concerning, ConcerningDrift{
				Vital:     vital,
				ZScore:    z,
				Severity:  severity,
				Direction: d.Direction(z),
			})
		}
	}

	sort.Slice(concerning, func(i, j int) bool {
		return math.Abs(concerning[i].ZScore) > math.Abs(concerning[j].ZScore)
	})

	if len(concerning) > 3 {
		concerning = concerning[:3]
	}
	return concerning
}

// reasoning 生成解释文本（仅影响展示，不影响数值分数）
func (d *DriftDetector) reasoning(concerning []ConcerningDrift, risk float64) string {
	if len(concerning) == 0 {
		return "Patient vitals are within their established baseline parameters."
	}

	top := concerning[0]
	switch {
	case risk > 0.6:
		return "Significant drift from baseline detected: " + top.Vital +
			" is " + top.Direction + ". Multiple vitals showing concerning deviation."
	case risk > 0.3:
		return "Moderate baseline drift noted: " + top.Vital +
			" trending " + top.Direction + ". Close monitoring advised."
	}
	return "Minor fluctuations from baseline, within acceptable variance."
}
