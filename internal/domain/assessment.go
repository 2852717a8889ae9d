package domain

import "time"

// ResponseMode selects the reply contract expected from the reasoning
// service.
type ResponseMode string

const (
	// ResponseStructured expects a strict-JSON risk object.
	ResponseStructured ResponseMode = "structured"
	// ResponseNarrative accepts free text displayed verbatim.
	ResponseNarrative ResponseMode = "narrative"
)

// ParseResponseMode validates a response mode string.
func ParseResponseMode(s string) (ResponseMode, bool) {
	switch ResponseMode(s) {
	case ResponseStructured, ResponseNarrative:
		return ResponseMode(s), true
	default:
		return "", false
	}
}

// RiskLevel is the closed set of risk categories in structured replies.
type RiskLevel string

const (
	RiskLow     RiskLevel = "LOW"
	RiskMedium  RiskLevel = "MEDIUM"
	RiskHigh    RiskLevel = "HIGH"
	RiskExtreme RiskLevel = "EXTREME"
)

// RiskReport is the structured reply schema the reasoning service is
// instructed to return.
type RiskReport struct {
	RiskLevel            RiskLevel `json:"risk_level"`
	SpreadProbability12h float64   `json:"spread_probability_12h"`
	PrimaryRiskFactors   []string  `json:"primary_risk_factors"`
	RecommendedActions   []string  `json:"recommended_actions"`
}

// AssumedContext is the fixed environmental context sent with every
// assessment. The system does not source live weather; these are
// documented placeholder assumptions, not measurements.
type AssumedContext struct {
	WindKmh                float64 `json:"wind_kmh"`
	HumidityPercent        float64 `json:"humidity_percent"`
	Terrain                string  `json:"terrain"`
	DistanceToPopulationKm float64 `json:"distance_to_population_km"`
}

// DefaultAssumptions returns the placeholder assumptions used for every
// assessment request.
func DefaultAssumptions() AssumedContext {
	return AssumedContext{
		WindKmh:                30,
		HumidityPercent:        20,
		Terrain:                "vegetation",
		DistanceToPopulationKm: 5,
	}
}

// Assessment is the outcome of one risk assessment request. RawText is
// always populated with the verbatim reply so the caller can inspect it
// even when structured parsing failed; Report is nil in narrative mode
// and when the reply did not parse.
type Assessment struct {
	RequestID   string        `json:"request_id"`
	DetectionID string        `json:"detection_id"`
	Mode        ResponseMode  `json:"mode"`
	Report      *RiskReport   `json:"report,omitempty"`
	RawText     string        `json:"raw_text"`
	Latency     time.Duration `json:"-"`
	LatencyMS   int64         `json:"latency_ms"`
}
