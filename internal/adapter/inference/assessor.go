// Package inference requests wildfire risk assessments from an
// OpenAI-compatible chat completion endpoint (Cerebras in production).
package inference

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	openai "github.com/sashabaranov/go-openai"

	"github.com/couchcryptid/wildfire-intel-service/internal/config"
	"github.com/couchcryptid/wildfire-intel-service/internal/domain"
	"github.com/couchcryptid/wildfire-intel-service/internal/observability"
)

// structuredSystemPrompt instructs the model to reply with the strict
// JSON risk schema.
const structuredSystemPrompt = `You are a real-time wildfire risk assessment AI.

Return ONLY valid JSON:
{
  "risk_level": "LOW | MEDIUM | HIGH | EXTREME",
  "spread_probability_12h": number between 0 and 1,
  "primary_risk_factors": [strings],
  "recommended_actions": [strings]
}`

// narrativeSystemPrompt requests a plain-language analysis instead.
const narrativeSystemPrompt = `You are a wildfire risk analyst. Given one satellite fire detection and the stated environmental assumptions, write a concise plain-language risk assessment (3-5 sentences) covering likely spread, main risk factors, and recommended actions. Note that wind, humidity, and terrain are assumed values, not measurements.`

// Assessor sends one detection at a time to the reasoning service.
type Assessor struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
	timeout     time.Duration
	enabled     bool
	metrics     *observability.Metrics
	logger      *slog.Logger
}

// NewAssessor builds an assessor from config. With no API key the
// assessor is disabled and Assess refuses before any network call.
func NewAssessor(cfg *config.Config, metrics *observability.Metrics, logger *slog.Logger) *Assessor {
	clientConfig := openai.DefaultConfig(cfg.InferenceAPIKey)
	clientConfig.BaseURL = cfg.InferenceBaseURL

	return &Assessor{
		client:      openai.NewClientWithConfig(clientConfig),
		model:       cfg.InferenceModel,
		temperature: cfg.InferenceTemperature,
		maxTokens:   cfg.InferenceMaxTokens,
		timeout:     cfg.InferenceTimeout,
		enabled:     cfg.InferenceAPIKey != "",
		metrics:     metrics,
		logger:      logger,
	}
}

// Enabled reports whether an inference credential is configured.
func (a *Assessor) Enabled() bool {
	return a.enabled
}

// fireContext is the serialized payload for one detection plus the
// fixed assumed environment.
type fireContext struct {
	Fire struct {
		Lat        float64  `json:"lat"`
		Lon        float64  `json:"lon"`
		Confidence float64  `json:"confidence"`
		FRPMW      *float64 `json:"frp_mw"`
		Brightness *float64 `json:"brightness"`
		Date       string   `json:"date"`
		Time       string   `json:"time"`
		Place      string   `json:"place,omitempty"`
	} `json:"fire"`
	Assumptions domain.AssumedContext `json:"assumptions"`
}

func newFireContext(d domain.Detection) fireContext {
	var ctx fireContext
	ctx.Fire.Lat = d.Latitude
	ctx.Fire.Lon = d.Longitude
	ctx.Fire.Confidence = d.Confidence
	if d.FRP.Valid {
		ctx.Fire.FRPMW = &d.FRP.Value
	}
	if d.Brightness.Valid {
		ctx.Fire.Brightness = &d.Brightness.Value
	}
	ctx.Fire.Date = d.AcqDate
	ctx.Fire.Time = d.AcqTime
	ctx.Fire.Place = d.PlaceName
	ctx.Assumptions = domain.DefaultAssumptions()
	return ctx
}

// Assess serializes exactly one detection and requests a risk
// assessment. In structured mode a reply that fails to parse as the
// risk schema is returned with Report nil and the raw text intact; it
// is not an error. Transport and provider failures wrap
// domain.ErrInference.
func (a *Assessor) Assess(ctx context.Context, d domain.Detection, mode domain.ResponseMode) (domain.Assessment, error) {
	if !a.enabled {
		return domain.Assessment{}, fmt.Errorf("no inference credential configured: %w", domain.ErrValidation)
	}

	payload, err := json.Marshal(newFireContext(d))
	if err != nil {
		return domain.Assessment{}, fmt.Errorf("serialize fire context: %w", err)
	}

	systemPrompt := structuredSystemPrompt
	if mode == domain.ResponseNarrative {
		systemPrompt = narrativeSystemPrompt
	}

	callCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	start := time.Now()
	resp, err := a.client.CreateChatCompletion(callCtx, openai.ChatCompletionRequest{
		Model: a.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: string(payload)},
		},
		MaxTokens:   a.maxTokens,
		Temperature: a.temperature,
	})
	latency := time.Since(start)
	a.metrics.InferenceDuration.Observe(latency.Seconds())

	if err != nil {
		a.metrics.InferenceRequests.WithLabelValues(string(mode), "error").Inc()
		return domain.Assessment{}, fmt.Errorf("chat completion: %v: %w", err, domain.ErrInference)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		a.metrics.InferenceRequests.WithLabelValues(string(mode), "error").Inc()
		return domain.Assessment{}, fmt.Errorf("empty completion response: %w", domain.ErrInference)
	}

	raw := strings.TrimSpace(resp.Choices[0].Message.Content)
	assessment := domain.Assessment{
		RequestID:   uuid.NewString(),
		DetectionID: d.ID,
		Mode:        mode,
		RawText:     raw,
		Latency:     latency,
		LatencyMS:   latency.Milliseconds(),
	}

	if mode == domain.ResponseStructured {
		if report, ok := parseRiskReport(raw); ok {
			assessment.Report = report
			a.metrics.InferenceRequests.WithLabelValues(string(mode), "parsed").Inc()
		} else {
			// Keep the raw reply visible rather than failing the caller.
			a.metrics.InferenceRequests.WithLabelValues(string(mode), "raw").Inc()
			a.logger.Warn("structured reply did not parse, surfacing raw text",
				"detection_id", d.ID, "reply_len", len(raw))
		}
	} else {
		a.metrics.InferenceRequests.WithLabelValues(string(mode), "raw").Inc()
	}

	a.logger.Info("assessment complete",
		"detection_id", d.ID,
		"mode", mode,
		"latency_ms", assessment.LatencyMS,
		"structured", assessment.Report != nil,
	)
	return assessment, nil
}

// parseRiskReport attempts to decode the strict JSON schema, tolerating
// markdown code fences some models wrap around JSON output.
func parseRiskReport(raw string) (*domain.RiskReport, bool) {
	stripped := stripCodeFence(raw)

	var report domain.RiskReport
	if err := json.Unmarshal([]byte(stripped), &report); err != nil {
		return nil, false
	}

	switch report.RiskLevel {
	case domain.RiskLow, domain.RiskMedium, domain.RiskHigh, domain.RiskExtreme:
	default:
		return nil, false
	}
	if report.SpreadProbability12h < 0 || report.SpreadProbability12h > 1 {
		return nil, false
	}
	return &report, true
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
