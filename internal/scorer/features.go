package scorer

import (
	"trisense-monitor/internal/buffer"
	"trisense-monitor/internal/models"
)

// Features 送入评分器的特征向量（名称 → 数值）
type Features map[string]float64

// 特征装配使用的窗口大小
const featureWindowSize = 6

// AssembleFeatures 从患者缓冲区装配特征向量
// 临床评分（qSOFA/SIRS/休克指数）+ 各体征的变化率/斜率/方差/z-score/极值/最新值。
func AssembleFeatures(buf *buffer.PatientBuffer) Features {
	features := make(Features)

	latest, ok := buf.Latest()
	if !ok {
		return features
	}
	window := buf.Window(featureWindowSize)

	// 临床评分
	features["qsofa_score"] = float64(qsofaScore(latest))
	features["sirs_score"] = float64(sirsScore(latest))
	features["shock_index"] = shockIndex(latest)

	deviations := buf.DeviationFromBaseline()

	for _, vital := range models.AllVitals {
		arr := window[vital]

		// 窗口首尾百分比变化
		pctChange := 0.0
		if len(arr) >= 2 && arr[0] != 0 {
			pctChange = (arr[len(arr)-1] - arr[0]) / arr[0] * 100
		}
		features[vital+"_pct_change"] = pctChange

		// 斜率
		slope := 0.0
		if len(arr) >= 2 {
			slope, _ = fitSlope(arr)
		}
		features[vital+"_slope"] = slope

		// 方差
		variance := 0.0
		if len(arr) >= 2 {
			variance = varianceOf(arr)
		}
		features[vital+"_variance"] = variance

		// 基线 z-score（无基线时为 0）
		features[vital+"_zscore"] = deviations[vital]

		// 极值
		if len(arr) > 0 {
			minV, maxV := arr[0], arr[0]
			for _, v := range arr[1:] {
				if v < minV {
					minV = v
				}
				if v > maxV {
					maxV = v
				}
			}
			features[vital+"_min"] = minV
			features[vital+"_max"] = maxV
		} else {
			features[vital+"_min"] = 0
			features[vital+"_max"] = 0
		}

		// 最新值
		features[vital+"_latest"] = latest.Get(vital)
	}

	return features
}

// qsofaScore 快速 SOFA 评分（0-3）
// 真实系统中意识状态来自 GCS，这里以极端心率作为代理指标。
func qsofaScore(v models.VitalSigns) int {
	score := 0
	if v.RespiratoryRate >= 22 {
		score++
	}
	if v.SystolicBP <= 100 {
		score++
	}
	if v.HeartRate > 120 || v.HeartRate < 50 {
		score++
	}
	return score
}

// sirsScore SIRS 标准评分（0-4）
// 白细胞计数标准以低血氧作为代理指标。
func sirsScore(v models.VitalSigns) int {
	score := 0
	if v.HeartRate > 90 {
		score++
	}
	if v.RespiratoryRate > 20 {
		score++
	}
	if v.Temperature < 36 || v.Temperature > 38 {
		score++
	}
	if v.SpO2 < 92 {
		score++
	}
	return score
}

// shockIndex 休克指数（心率 / 收缩压）
func shockIndex(v models.VitalSigns) float64 {
	if v.SystolicBP > 0 {
		return v.HeartRate / v.SystolicBP
	}
	return 0
}

// fitSlope 最小二乘斜率，x 为下标
func fitSlope(values []float64) (slope, intercept float64) {
	n := float64(len(values))
	if n < 2 {
		if n == 1 {
			return 0, values[0]
		}
		return 0, 0
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

// varianceOf 总体方差
func varianceOf(values []float64) float64 {
	if len(values) == 0 {
		return 0
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
	return sq / float64(len(values))
}
