package detector

import (
	"fmt"
	"math"
	"sort"

	"go.uber.org/zap"

	"trisense-monitor/internal/buffer"
	"trisense-monitor/internal/models"
)

// 趋势风险级别
const (
	TrendRiskHigh     = "HIGH"
	TrendRiskModerate = "MODERATE"
	TrendRiskLow      = "LOW"
	TrendRiskUnknown  = "UNKNOWN"
)

// 趋势方向
const (
	TrendIncreasing = "INCREASING"
	TrendDecreasing = "DECREASING"
	TrendStable     = "STABLE"
	TrendUnknown    = "UNKNOWN"
)

// 突破阈值方向
const (
	BreachHigh = "HIGH"
	BreachLow  = "LOW"
)

// 预测视野（读数数量；15 分钟采样周期下约为 30/60/120 分钟）
var forecastHorizons = []int{2, 4, 8}

// 每次读数间隔的分钟数（用于展示突破预估时间）
const readingIntervalMinutes = 15

// 突破预估仅在 0 < 读数数 < 20 之间报告，之外视为过于不确定或已越界
const breachReportLimit = 20

// criticalThresholds 每个体征的固定临界阈值
var criticalThresholds = map[string]struct{ low, high float64 }{
	models.VitalHeartRate:       {50, 130},
	models.VitalSystolicBP:      {85, 180},
	models.VitalDiastolicBP:     {50, 110},
	models.VitalRespiratoryRate: {8, 28},
	models.VitalSpO2:            {88, 101},
	models.VitalTemperature:     {35.0, 39.0},
}

// Projection 单个视野的点预测与置信区间
type Projection struct {
	Horizon        int     `json:"horizon"`
	PredictedValue float64 `json:"predicted_value"`
	LowerBound     float64 `json:"lower_bound"`
	UpperBound     float64 `json:"upper_bound"`
	Confidence     float64 `json:"confidence"`
}

// BreachEstimate 预计突破临界阈值的读数数量
type BreachEstimate struct {
	Threshold     string `json:"threshold"` // HIGH / LOW
	ReadingsUntil int    `json:"readings_until"`
	EstimatedTime string `json:"estimated_time"`
}

// TrendProjection 单个体征的趋势预测
type TrendProjection struct {
	CurrentValue   float64         `json:"current_value"`
	Trend          string          `json:"trend"`
	Slope          float64         `json:"slope"`
	Volatility     float64         `json:"volatility"` // 窗口内标准差
	Projections    []Projection    `json:"projections"`
	BreachEstimate *BreachEstimate `json:"breach_estimate,omitempty"`
	RiskLevel      string          `json:"risk_level"`
}

// ImminentBreach 即将突破的体征（按紧迫度排序）
type ImminentBreach struct {
	Vital string `json:"vital"`
	BreachEstimate
}

// TrendResult 单次趋势评估结果
type TrendResult struct {
	Projections map[string]TrendProjection
	RiskScore   float64
	Confidence  float64
	Breaches    []ImminentBreach
	Reasoning   string
}

// TrendForecaster 线性趋势预测器
// 对窗口内每个体征做最小二乘拟合，向前外推并估计临界阈值突破时间。
// 每次调用无状态，可在所有患者评估间共享。
type TrendForecaster struct {
	windowSize int
	logger     *zap.Logger
}

// NewTrendForecaster 创建趋势预测器
func NewTrendForecaster(windowSize int, logger *zap.Logger) *TrendForecaster {
	return &TrendForecaster{
		windowSize: windowSize,
		logger:     logger,
	}
}

// Forecast 预测所有体征的短期趋势
// 某个体征不足 3 个点时标记为 UNKNOWN，零风险贡献，不中断其他体征。
func (f *TrendForecaster) Forecast(buf *buffer.PatientBuffer) TrendResult {
	window := buf.Window(f.windowSize)

	projections := make(map[string]TrendProjection, len(models.AllVitals))
	for _, vital := range models.AllVitals {
		values := window[vital]
		if len(values) >= 3 {
			projections[vital] = f.forecastVital(vital, values)
		} else {
			projections[vital] = TrendProjection{
				Trend:     TrendUnknown,
				RiskLevel: TrendRiskUnknown,
			}
		}
	}

	var hasHigh, hasModerate bool
	for _, p := range projections {
		switch p.RiskLevel {
		case TrendRiskHigh:
			hasHigh = true
		case TrendRiskModerate:
			hasModerate = true
		}
	}

	risk := 0.2
	if hasHigh {
		risk = 0.8
	} else if hasModerate {
		risk = 0.5
	}

	breaches := f.imminentBreaches(projections)

	return TrendResult{
		Projections: projections,
		RiskScore:   risk,
		Confidence:  0.7,
		Breaches:    breaches,
		Reasoning:   f.reasoning(projections, breaches),
	}
}

// forecastVital 预测单个体征
func (f *TrendForecaster) forecastVital(vital string, values []float64) TrendProjection {
	n := len(values)
	slope, intercept := leastSquares(values)
	_, std := meanStdSlice(values)
	current := values[n-1]

	projections := make([]Projection, 0, len(forecastHorizons))
	for _, horizon := range forecastHorizons {
		predicted := intercept + slope*float64(n+horizon-1)
		// 95% 置信带：残差标准差按 sqrt(horizon/n) 放大
		interval := 1.96 * std * math.Sqrt(float64(horizon)/float64(n))

		projections = append(projections, Projection{
			Horizon:        horizon,
			PredictedValue: predicted,
			LowerBound:     predicted - interval,
			UpperBound:     predicted + interval,
			Confidence:     projectionConfidence(n, horizon, std),
		})
	}

	trend := TrendStable
	if slope > 0.5 {
		trend = TrendIncreasing
	} else if slope < -0.5 {
		trend = TrendDecreasing
	}

	return TrendProjection{
		CurrentValue:   current,
		Trend:          trend,
		Slope:          slope,
		Volatility:     std,
		Projections:    projections,
		BreachEstimate: f.estimateBreach(vital, current, slope),
		RiskLevel:      f.assessRisk(vital, projections),
	}
}

// estimateBreach 按斜率方向估计突破临界阈值所需的读数数量
func (f *TrendForecaster) estimateBreach(vital string, current, slope float64) *BreachEstimate {
	if slope == 0 {
		return nil
	}

	thresholds, ok := criticalThresholds[vital]
	if !ok {
		return nil
	}

	if slope > 0 {
		if current < thresholds.high {
			readings := (thresholds.high - current) / slope
			if readings > 0 && readings < breachReportLimit {
				return &BreachEstimate{
					Threshold:     BreachHigh,
					ReadingsUntil: int(readings),
					EstimatedTime: fmt.Sprintf("%d min", int(readings)*readingIntervalMinutes),
				}
			}
		}
		return nil
	}

	if current > thresholds.low {
		readings := (current - thresholds.low) / math.Abs(slope)
		if readings > 0 && readings < breachReportLimit {
			return &BreachEstimate{
				Threshold:     BreachLow,
				ReadingsUntil: int(readings),
				EstimatedTime: fmt.Sprintf("%d min", int(readings)*readingIntervalMinutes),
			}
		}
	}
	return nil
}

// assessRisk 点预测越过临界带为 HIGH，仅置信区间越过为 MODERATE，否则 LOW
func (f *TrendForecaster) assessRisk(vital string, projections []Projection) string {
	if len(projections) == 0 {
		return TrendRiskUnknown
	}

	thresholds, ok := criticalThresholds[vital]
	if !ok {
		return TrendRiskLow
	}

	for _, p := range projections {
		if p.PredictedValue < thresholds.low || p.PredictedValue > thresholds.high {
			return TrendRiskHigh
		}
	}
	for _, p := range projections {
		if p.LowerBound < thresholds.low || p.UpperBound > thresholds.high {
			return TrendRiskModerate
		}
	}
	return TrendRiskLow
}

// imminentBreaches 收集所有突破预估并按紧迫度排序
func (f *TrendForecaster) imminentBreaches(projections map[string]TrendProjection) []ImminentBreach {
	var breaches []ImminentBreach
	for _, vital := range models.AllVitals {
		p := projections[vital]
		if p.BreachEstimate != nil {
			breaches = append(breaches, ImminentBreach{
				Vital:          vital,
				BreachEstimate: *p.BreachEstimate,
			})
		}
	}
	sort.Slice(breaches, func(i, j int) bool {
		return breaches[i].ReadingsUntil < breaches[j].ReadingsUntil
	})
	if len(breaches) > 2 {
		breaches = breaches[:2]
	}
	return breaches
}

// reasoning 生成解释文本
func (f *TrendForecaster) reasoning(projections map[string]TrendProjection, breaches []ImminentBreach) string {
	if len(breaches) > 0 {
		top := breaches[0]
		return fmt.Sprintf("PREDICTIVE ALERT: %s trending toward %s threshold in ~%s. Intervention recommended.",
			top.Vital, top.Threshold, top.EstimatedTime)
	}

	var concerning []string
	for _, vital := range models.AllVitals {
		p := projections[vital]
		if (p.Trend == TrendIncreasing || p.Trend == TrendDecreasing) && p.RiskLevel != TrendRiskLow && p.RiskLevel != TrendRiskUnknown {
			concerning = append(concerning, fmt.Sprintf("%s: %s", vital, p.Trend))
		}
	}
	if len(concerning) > 0 {
		if len(concerning) > 3 {
			concerning = concerning[:3]
		}
		out := "Trends to monitor: "
		for i, c := range concerning {
			if i > 0 {
				out += ", "
			}
			out += c
		}
		return out + ". No immediate threshold breach predicted."
	}

	return "Vital signs trending within safe parameters. No concerning projections."
}

// projectionConfidence 三个有界因子的乘积：数据量、视野、波动性
func projectionConfidence(dataPoints, horizon int, std float64) float64 {
	dataFactor := math.Min(float64(dataPoints)/10.0, 1.0)
	horizonFactor := 1.0 - float64(horizon)/20.0
	volFactor := math.Max(0, 1.0-std/10.0)
	return dataFactor * horizonFactor * volFactor
}

// leastSquares 最小二乘拟合 y = slope*x + intercept，x 为下标
func leastSquares(values []float64) (slope, intercept float64) {
	n := float64(len(values))
	if n == 0 {
		return 0, 0
	}
	if n == 1 {
		return 0, values[0]
	}

	var sumX, sumY, sumXY, sumXX float64
	for i, y := range values {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}

	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return 0, sumY / n
	}
	slope = (n*sumXY - sumX*sumY) / denom
	intercept = (sumY - slope*sumX) / n
	return slope, intercept
}

// meanStdSlice 均值与总体标准差
func meanStdSlice(values []float64) (float64, float64) {
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
