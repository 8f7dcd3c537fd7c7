package scorer

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"trisense-monitor/internal/models"
)

// scoreRequest 评分服务请求
type scoreRequest struct {
	Features Features `json:"features"`
}

// scoreResponse 评分服务响应
type scoreResponse struct {
	ModelName      string  `json:"model_name"`
	Task           string  `json:"task"`
	RiskScore      float64 `json:"risk_score"`
	Confidence     float64 `json:"confidence"`
	PredictionTime string  `json:"prediction_time"`
}

// HTTPScorer 远端 ML 评分服务客户端
// 调用独立部署的评分服务（XGBoost/PatchTST 混合模型），超时有界，
// 失败由上层降级到规则回退评分器。
type HTTPScorer struct {
	httpClient *resty.Client
	logger     *zap.Logger
}

// NewHTTPScorer 创建评分服务客户端
func NewHTTPScorer(baseURL string, timeout time.Duration, logger *zap.Logger) *HTTPScorer {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &HTTPScorer{
		httpClient: client,
		logger:     logger,
	}
}

// Score 调用评分服务
func (s *HTTPScorer) Score(ctx context.Context, features Features) (models.MLOutput, error) {
	var response scoreResponse
	resp, err := s.httpClient.R().
		SetContext(ctx).
		SetBody(scoreRequest{Features: features}).
		SetResult(&response).
		Post("/v1/score")

	if err != nil {
		s.logger.Warn("Scoring service call failed",
			zap.Error(err),
		)
		return models.MLOutput{}, fmt.Errorf("failed to call scoring service: %w", err)
	}

	if resp.IsError() {
		s.logger.Warn("Scoring service returned error",
			zap.Int("status_code", resp.StatusCode()),
		)
		return models.MLOutput{}, fmt.Errorf("scoring service error: status %d", resp.StatusCode())
	}

	predictionTime, err := time.Parse(time.RFC3339, response.PredictionTime)
	if err != nil {
		predictionTime = time.Now().UTC()
	}

	return models.MLOutput{
		ModelName:      response.ModelName,
		Task:           response.Task,
		RiskScore:      clamp01(response.RiskScore),
		Confidence:     clamp01(response.Confidence),
		PredictionTime: predictionTime,
	}, nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
