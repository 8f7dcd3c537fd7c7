package reasoning

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"trisense-monitor/internal/models"
)

// reasoningRequest 推理服务请求
type reasoningRequest struct {
	MLOutput models.MLOutput `json:"ml_output"`
}

// HTTPGenerator 远端推理服务客户端
// 调用 LLM 推理服务生成受限的临床解释；失败由上层降级到规则模板。
type HTTPGenerator struct {
	httpClient *resty.Client
	logger     *zap.Logger
}

// NewHTTPGenerator 创建推理服务客户端
func NewHTTPGenerator(baseURL string, timeout time.Duration, logger *zap.Logger) *HTTPGenerator {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &HTTPGenerator{
		httpClient: client,
		logger:     logger,
	}
}

// Generate 调用推理服务
func (g *HTTPGenerator) Generate(ctx context.Context, mlOutput models.MLOutput) (models.ClinicalReasoning, error) {
	var reasoning models.ClinicalReasoning
	resp, err := g.httpClient.R().
		SetContext(ctx).
		SetBody(reasoningRequest{MLOutput: mlOutput}).
		SetResult(&reasoning).
		Post("/v1/reasoning")

	if err != nil {
		g.logger.Warn("Reasoning service call failed",
			zap.Error(err),
		)
		return models.ClinicalReasoning{}, fmt.Errorf("failed to call reasoning service: %w", err)
	}

	if resp.IsError() {
		g.logger.Warn("Reasoning service returned error",
			zap.Int("status_code", resp.StatusCode()),
		)
		return models.ClinicalReasoning{}, fmt.Errorf("reasoning service error: status %d", resp.StatusCode())
	}

	if reasoning.Severity == "" {
		return models.ClinicalReasoning{}, fmt.Errorf("reasoning service returned empty explanation")
	}

	return reasoning, nil
}
