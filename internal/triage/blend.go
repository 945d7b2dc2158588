package triage

import "fmt"

// Blend weights. The AI-weighted term multiplies priority by confidence while
// the traditional term multiplies priority by the contextual multipliers. The
// asymmetry is intentional; downstream score bands depend on it.
const (
	aiScoreWeight   = 0.7
	ruleScoreWeight = 0.3

	highTrustThreshold = 0.8
	lowTrustThreshold  = 0.6
)

// blendStrategy picks the routing fields for one confidence bucket. The table
// is ordered highest bucket first; the first strategy whose bound the AI
// confidence exceeds wins.
type blendStrategy struct {
	minConfidence float64 // exclusive lower bound
	route         func(rule RuleScore, ai Decision) Decision
}

var blendStrategies = []blendStrategy{
	{highTrustThreshold, routeAIVerbatim},
	{lowTrustThreshold, routeAILowerTrust},
	{-1, routeRules},
}

// Blend combines the deterministic rule score with an optional AI decision
// into the final decision and numeric score. A nil AI decision returns the
// rule-based decision unchanged with its rule-only score.
func Blend(rule RuleScore, ai *Decision) (Decision, float64) {
	if ai == nil {
		return rule.Decision(), rule.Score()
	}

	aiPriority := float64(ai.EmergencyLevel.Priority())
	aiWeighted := aiPriority * ai.Confidence
	traditional := aiPriority * rule.Multiplier()
	finalScore := aiScoreWeight*aiWeighted + ruleScoreWeight*traditional

	for _, strategy := range blendStrategies {
		if ai.Confidence > strategy.minConfidence {
			return strategy.route(rule, *ai), finalScore
		}
	}
	return routeRules(rule, *ai), finalScore
}

func routeAIVerbatim(_ RuleScore, ai Decision) Decision {
	ai.Source = SourceAI
	return ai
}

func routeAILowerTrust(_ RuleScore, ai Decision) Decision {
	ai.Source = SourceAILowTrust
	return ai
}

// routeRules keeps the independently computed rule routing and ignores the AI
// fields for everything except the explanation. Parser-fallback provenance is
// carried through so the source label survives rule routing.
func routeRules(rule RuleScore, ai Decision) Decision {
	d := rule.Decision()
	switch ai.Source {
	case SourceParserFallback, SourceParserDefault:
		d.Source = ai.Source
		d.Reasoning = truncateReasoning(ai.Reasoning + "; rule-based routing applied")
	default:
		d.Reasoning = fmt.Sprintf("rule-based routing; model confidence %.2f at or below the trust threshold", ai.Confidence)
	}
	return d
}
