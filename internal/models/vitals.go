package models

import "time"

// 生命体征名称（与摄入 JSON 字段保持一致）
const (
	VitalHeartRate       = "heart_rate"
	VitalSystolicBP      = "systolic_bp"
	VitalDiastolicBP     = "diastolic_bp"
	VitalRespiratoryRate = "respiratory_rate"
	VitalSpO2            = "spo2"
	VitalTemperature     = "temperature"
)

// AllVitals 所有生命体征名称（固定顺序，用于确定性遍历）
var AllVitals = []string{
	VitalHeartRate,
	VitalSystolicBP,
	VitalDiastolicBP,
	VitalRespiratoryRate,
	VitalSpO2,
	VitalTemperature,
}

// VitalSigns 单次生命体征读数
type VitalSigns struct {
	HeartRate       float64 `json:"heart_rate"`       // 心率 BPM
	SystolicBP      float64 `json:"systolic_bp"`      // 收缩压 mmHg
	DiastolicBP     float64 `json:"diastolic_bp"`     // 舒张压 mmHg
	RespiratoryRate float64 `json:"respiratory_rate"` // 呼吸率 /min
	SpO2            float64 `json:"spo2"`             // 血氧饱和度 %
	Temperature     float64 `json:"temperature"`      // 体温 ℃
}

// Get 按名称取值
func (v VitalSigns) Get(name string) float64 {
	switch name {
	case VitalHeartRate:
		return v.HeartRate
	case VitalSystolicBP:
		return v.SystolicBP
	case VitalDiastolicBP:
		return v.DiastolicBP
	case VitalRespiratoryRate:
		return v.RespiratoryRate
	case VitalSpO2:
		return v.SpO2
	case VitalTemperature:
		return v.Temperature
	}
	return 0
}

// AsMap 转换为名称到数值的映射
func (v VitalSigns) AsMap() map[string]float64 {
	m := make(map[string]float64, len(AllVitals))
	for _, name := range AllVitals {
		m[name] = v.Get(name)
	}
	return m
}

// VitalReading 摄入边界的单条消息
type VitalReading struct {
	PatientID string     `json:"patient_id"`
	Timestamp time.Time  `json:"timestamp"`
	Vitals    VitalSigns `json:"vitals"`
}

// RiskPoint 风险分数历史中的一个点
type RiskPoint struct {
	Timestamp time.Time `json:"timestamp"`
	RiskScore float64   `json:"risk_score"`
}
