package detector

import (
	"trisense-monitor/internal/buffer"
	"trisense-monitor/internal/models"
)

// 体征定性状态标签
const (
	StateNormal     = "normal"
	StateLow        = "low"
	StateVeryLow    = "very_low"
	StateHigh       = "high"
	StateVeryHigh   = "very_high"
	StateExtreme    = "extreme"
	StateElevated   = "elevated"
	StateBorderline = "borderline"
	StateIncreasing = "increasing"
	StateDecreasing = "decreasing"
	StateAbnormal   = "abnormal"
)

// analyzeVitals 将最近窗口分类为每个体征的定性状态
// 固定临床分界点 + 窗口方向性变化的趋势覆盖。
func analyzeVitals(buf *buffer.PatientBuffer, windowSize int) map[string]string {
	analysis := make(map[string]string, len(models.AllVitals))

	latest, ok := buf.Latest()
	if !ok {
		return analysis
	}
	window := buf.Window(windowSize)

	// 心率
	hr := latest.HeartRate
	switch {
	case hr > 140:
		analysis[models.VitalHeartRate] = StateExtreme
	case hr > 120:
		analysis[models.VitalHeartRate] = StateVeryHigh
	case hr > 100:
		analysis[models.VitalHeartRate] = StateHigh
	case hr < 50:
		analysis[models.VitalHeartRate] = StateVeryLow
	case hr < 60:
		analysis[models.VitalHeartRate] = StateLow
	default:
		analysis[models.VitalHeartRate] = StateNormal
	}
	// 趋势覆盖：窗口内上升 ≥10% 且当前状态为 normal 时提升为 increasing
	if hrArr := window[models.VitalHeartRate]; len(hrArr) >= 3 {
		if hrArr[len(hrArr)-1] > hrArr[0]*1.1 && analysis[models.VitalHeartRate] == StateNormal {
			analysis[models.VitalHeartRate] = StateIncreasing
		}
	}

	// 收缩压
	sbp := latest.SystolicBP
	switch {
	case sbp > 180:
		analysis[models.VitalSystolicBP] = StateVeryHigh
	case sbp > 140:
		analysis[models.VitalSystolicBP] = StateHigh
	case sbp < 80:
		analysis[models.VitalSystolicBP] = StateVeryLow
	case sbp < 90:
		analysis[models.VitalSystolicBP] = StateLow
	default:
		analysis[models.VitalSystolicBP] = StateNormal
	}
	// 下降 ≥10% 视为 decreasing（无条件覆盖：下降中的血压即使仍在正常区间也是信号）
	if sbpArr := window[models.VitalSystolicBP]; len(sbpArr) >= 3 {
		if sbpArr[len(sbpArr)-1] < sbpArr[0]*0.9 {
			analysis[models.VitalSystolicBP] = StateDecreasing
		}
	}

	// 舒张压
	dbp := latest.DiastolicBP
	switch {
	case dbp > 120:
		analysis[models.VitalDiastolicBP] = StateVeryHigh
	case dbp < 60:
		analysis[models.VitalDiastolicBP] = StateLow
	default:
		analysis[models.VitalDiastolicBP] = StateNormal
	}

	// 呼吸率
	rr := latest.RespiratoryRate
	switch {
	case rr > 30:
		analysis[models.VitalRespiratoryRate] = StateVeryHigh
	case rr > 24:
		analysis[models.VitalRespiratoryRate] = StateHigh
	case rr > 20:
		analysis[models.VitalRespiratoryRate] = StateElevated
	case rr < 10:
		analysis[models.VitalRespiratoryRate] = StateVeryLow
	default:
		analysis[models.VitalRespiratoryRate] = StateNormal
	}
	// 上升 ≥15% 视为 increasing
	if rrArr := window[models.VitalRespiratoryRate]; len(rrArr) >= 3 {
		if rrArr[len(rrArr)-1] > rrArr[0]*1.15 {
			analysis[models.VitalRespiratoryRate] = StateIncreasing
		}
	}

	// 血氧饱和度
	spo2 := latest.SpO2
	switch {
	case spo2 < 85:
		analysis[models.VitalSpO2] = StateVeryLow
	case spo2 < 90:
		analysis[models.VitalSpO2] = StateLow
	case spo2 < 94:
		analysis[models.VitalSpO2] = StateBorderline
	default:
		analysis[models.VitalSpO2] = StateNormal
	}
	// 窗口内下降超过 2 个百分点视为 decreasing
	if spo2Arr := window[models.VitalSpO2]; len(spo2Arr) >= 3 {
		if spo2Arr[len(spo2Arr)-1] < spo2Arr[0]-2 {
			analysis[models.VitalSpO2] = StateDecreasing
		}
	}

	// 体温
	temp := latest.Temperature
	switch {
	case temp > 39.5:
		analysis[models.VitalTemperature] = StateVeryHigh
	case temp > 38.3:
		analysis[models.VitalTemperature] = StateHigh
	case temp > 37.5:
		analysis[models.VitalTemperature] = StateElevated
	case temp < 35.5:
		analysis[models.VitalTemperature] = StateVeryLow
	case temp < 36.0:
		analysis[models.VitalTemperature] = StateLow
	default:
		analysis[models.VitalTemperature] = StateNormal
	}
	// 明显偏离正常区间时折叠为 abnormal（供复合模式使用）
	if temp > 38 || temp < 36 {
		analysis[models.VitalTemperature] = StateAbnormal
	}

	return analysis
}

// semanticGroups 期望标签到可接受实际标签集合的静态映射
// 模拟临床容差：期望 "high" 时 elevated/very_high/extreme 都算匹配。
var semanticGroups = map[string][]string{
	StateIncreasing:        {StateIncreasing, StateHigh, StateElevated, StateVeryHigh},
	StateDecreasing:        {StateDecreasing, StateLow, StateVeryLow},
	StateHigh:              {StateHigh, StateElevated, StateVeryHigh, StateExtreme},
	StateLow:               {StateLow, StateVeryLow},
	StateElevated:          {StateElevated, StateHigh, StateIncreasing},
	StateAbnormal:          {StateHigh, StateLow, StateVeryHigh, StateVeryLow, StateElevated, StateAbnormal, StateExtreme},
	"normal_or_decreasing": {StateNormal, StateDecreasing, StateLow},
	"variable":             {StateNormal, StateHigh, StateLow, StateIncreasing, StateDecreasing},
}

// conditionMatches 实际状态是否满足期望状态
func conditionMatches(actual, expected string) bool {
	if actual == expected {
		return true
	}
	for _, accepted := range semanticGroups[expected] {
		if actual == accepted {
			return true
		}
	}
	return false
}
