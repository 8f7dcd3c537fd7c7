package scorer

import "sort"

// featureImportance 离线训练导出的特征重要度
// 用于向下游解释哪些特征对当前评分贡献最大。
var featureImportance = map[string]float64{
	"qsofa_score":             0.142,
	"shock_index":             0.118,
	"spo2_latest":             0.104,
	"systolic_bp_latest":      0.097,
	"heart_rate_latest":       0.089,
	"sirs_score":              0.083,
	"respiratory_rate_latest": 0.071,
	"heart_rate_slope":        0.058,
	"systolic_bp_slope":       0.054,
	"spo2_slope":              0.047,
	"temperature_latest":      0.042,
	"heart_rate_variance":     0.033,
	"respiratory_rate_slope":  0.029,
	"heart_rate_pct_change":   0.021,
	"systolic_bp_pct_change":  0.012,
}

// TopFeatures 返回重要度最高且在当前特征集中出现的前 n 个特征
func TopFeatures(features Features, n int) map[string]float64 {
	type entry struct {
		name       string
		importance float64
	}

	entries := make([]entry, 0, len(featureImportance))
	for name, importance := range featureImportance {
		entries = append(entries, entry{name: name, importance: importance})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].importance != entries[j].importance {
			return entries[i].importance > entries[j].importance
		}
		return entries[i].name < entries[j].name
	})

	top := make(map[string]float64, n)
	for _, e := range entries {
		if len(top) >= n {
			break
		}
		if _, ok := features[e.name]; ok && e.importance > 0 {
			top[e.name] = e.importance
		}
	}
	return top
}
