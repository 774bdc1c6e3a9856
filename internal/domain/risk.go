package domain

// MaxRiskScore is the top of the risk scale.
const MaxRiskScore = 10.0

// RiskLevel is the display band for a risk score.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskElevated RiskLevel = "elevated"
	RiskCritical RiskLevel = "critical"
)

// ClassifyRisk maps a 0-10 score to its band. Thresholds are exclusive:
// exactly 7 is elevated, exactly 4 is low.
func ClassifyRisk(score float64) RiskLevel {
	switch {
	case score > 7:
		return RiskCritical
	case score > 4:
		return RiskElevated
	default:
		return RiskLow
	}
}

// FrameSummary is what the metadata panel shows for a frame.
type FrameSummary struct {
	FrameID      int       `json:"frameId"`
	Timestamp    string    `json:"timestamp"`
	Rainfall     float64   `json:"rainfall"`
	RiverLevel   float64   `json:"riverLevel"`
	RiskScore    float64   `json:"riskScore"`
	RiskLevel    RiskLevel `json:"riskLevel"`
	RiskPercent  float64   `json:"riskPercent"`
	DataPoints   int       `json:"dataPoints"`
	PrimaryEvent string    `json:"primaryEvent,omitempty"`
}

// Summarize derives the panel values for f.
func Summarize(f ReplayFrame) FrameSummary {
	return FrameSummary{
		FrameID:      f.FrameID,
		Timestamp:    f.Timestamp,
		Rainfall:     f.Rainfall,
		RiverLevel:   f.RiverLevel,
		RiskScore:    f.RiskScore,
		RiskLevel:    ClassifyRisk(f.RiskScore),
		RiskPercent:  f.RiskScore / MaxRiskScore * 100,
		DataPoints:   len(f.RainfallLayer),
		PrimaryEvent: f.PrimaryEvent,
	}
}
