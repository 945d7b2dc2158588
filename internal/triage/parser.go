package triage

import (
	"encoding/json"
	"fmt"
	"strings"
)

// decisionWire is the fixed schema the model is instructed to emit. Fields are
// validated and clamped here, once, and nowhere else.
type decisionWire struct {
	EmergencyLevel       string   `json:"emergency_level"`
	Confidence           float64  `json:"confidence"`
	Category             string   `json:"category"`
	EstimatedWaitMinutes int      `json:"estimated_wait_minutes"`
	Department           string   `json:"department"`
	Actions              []string `json:"actions"`
	RiskFactors          []string `json:"risk_factors"`
	Reasoning            string   `json:"reasoning"`
}

const heuristicConfidence = 0.6

// Keyword cues for tier-two parsing, scanned in severity order against the
// lowercased raw output.
var (
	criticalCues = []string{"critical", "life-threatening", "life threatening", "call 911", "cardiac arrest", "not breathing", "unresponsive"}
	highCues     = []string{"urgent", "emergency", "severe", "serious", "acute", "immediate"}
	moderateCues = []string{"moderate", "routine"}
)

// ParseDecision turns raw model output into a Decision. It is total: any
// input, including garbage, yields an in-range Decision. Tier one decodes an
// embedded JSON block, tier two falls back to keyword heuristics over the raw
// text, tier three returns a fixed default.
func ParseDecision(raw string) Decision {
	if block, ok := extractStructuredBlock(raw); ok {
		var w decisionWire
		if err := json.Unmarshal([]byte(block), &w); err == nil && (w.EmergencyLevel != "" || w.Category != "") {
			parseFallbackTotal.WithLabelValues("structured").Inc()
			return decisionFromWire(w)
		}
	}
	if strings.TrimSpace(raw) == "" {
		parseFallbackTotal.WithLabelValues("default").Inc()
		return defaultDecision()
	}
	parseFallbackTotal.WithLabelValues("heuristic").Inc()
	return heuristicDecision(raw)
}

// extractStructuredBlock strips markdown fences and cuts the first '{' to the
// last '}' so prose around the JSON does not break decoding.
func extractStructuredBlock(raw string) (string, bool) {
	text := strings.TrimSpace(raw)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return text[start : end+1], true
}

func decisionFromWire(w decisionWire) Decision {
	return Decision{
		EmergencyLevel:       EmergencyLevel(w.EmergencyLevel),
		Confidence:           w.Confidence,
		Category:             Category(w.Category),
		EstimatedWaitMinutes: w.EstimatedWaitMinutes,
		Department:           w.Department,
		Actions:              w.Actions,
		RiskFactors:          w.RiskFactors,
		Reasoning:            w.Reasoning,
		Source:               SourceAI,
	}.normalize()
}

func heuristicDecision(raw string) Decision {
	lower := strings.ToLower(raw)
	level := LevelLow
	summary := "model output had no structured block and no urgency keywords; treating as low urgency"
	if cue, ok := firstCue(lower, criticalCues); ok {
		level = LevelCritical
		summary = fmt.Sprintf("model output had no structured block; keyword %q suggests critical urgency", cue)
	} else if cue, ok := firstCue(lower, highCues); ok {
		level = LevelHigh
		summary = fmt.Sprintf("model output had no structured block; keyword %q suggests high urgency", cue)
	} else if cue, ok := firstCue(lower, moderateCues); ok {
		level = LevelModerate
		summary = fmt.Sprintf("model output had no structured block; keyword %q suggests moderate urgency", cue)
	}
	return Decision{
		EmergencyLevel:       level,
		Confidence:           heuristicConfidence,
		Category:             categoryForLevel(level),
		EstimatedWaitMinutes: defaultWaitForLevel(level),
		Reasoning:            summary,
		Source:               SourceParserFallback,
	}.normalize()
}

// defaultDecision is the tier-three floor: a safe middle-of-the-road decision
// issued when the model output is empty or unusable.
func defaultDecision() Decision {
	return Decision{
		EmergencyLevel:       LevelModerate,
		Confidence:           0.5,
		Category:             CategorySemiUrgent,
		EstimatedWaitMinutes: 90,
		Department:           defaultDepartment,
		Reasoning:            "model output could not be parsed; issuing the default moderate decision",
		Source:               SourceParserDefault,
	}
}

func firstCue(lower string, cues []string) (string, bool) {
	for _, cue := range cues {
		if strings.Contains(lower, cue) {
			return cue, true
		}
	}
	return "", false
}

func categoryForLevel(level EmergencyLevel) Category {
	switch level {
	case LevelCritical:
		return CategoryEmergency
	case LevelHigh:
		return CategoryUrgent
	case LevelModerate:
		return CategorySemiUrgent
	default:
		return CategoryNonUrgent
	}
}

func defaultWaitForLevel(level EmergencyLevel) int {
	switch level {
	case LevelCritical:
		return 0
	case LevelHigh:
		return 30
	case LevelModerate:
		return 90
	default:
		return 180
	}
}
