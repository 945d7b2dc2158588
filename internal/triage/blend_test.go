package triage

import (
	"math"
	"testing"
)

func ruleScoreFixture() RuleScore {
	return RuleScore{
		Priority:      3,
		Category:      CategoryUrgent,
		WaitMinutes:   30,
		Department:    "Pulmonology",
		AgeMult:       1.3,
		InsuranceMult: 1.0,
		TimeMult:      1.0,
	}
}

func aiDecisionFixture(confidence float64) *Decision {
	return &Decision{
		EmergencyLevel:       LevelHigh,
		Confidence:           confidence,
		Category:             CategoryEmergency,
		EstimatedWaitMinutes: 5,
		Department:           "Cardiology",
		Reasoning:            "model assessment",
		Source:               SourceAI,
	}
}

func TestBlendWithoutAIReturnsRuleDecisionUnchanged(t *testing.T) {
	rule := ruleScoreFixture()
	d, score := Blend(rule, nil)

	if d.Category != rule.Category || d.EstimatedWaitMinutes != rule.WaitMinutes || d.Department != rule.Department {
		t.Errorf("rule decision altered: %+v", d)
	}
	if d.Source != SourceRules {
		t.Errorf("Source = %q, want %q", d.Source, SourceRules)
	}
	want := 3.0 * 1.3
	if math.Abs(score-want) > 1e-9 {
		t.Errorf("score = %v, want %v", score, want)
	}
}

func TestBlendScoreFormula(t *testing.T) {
	rule := ruleScoreFixture()
	ai := aiDecisionFixture(0.9)

	_, score := Blend(rule, ai)

	// 0.7*(3*0.9) + 0.3*(3*1.3)
	want := 0.7*2.7 + 0.3*3.9
	if math.Abs(score-want) > 1e-9 {
		t.Errorf("score = %v, want %v", score, want)
	}
}

func TestBlendConfidenceGating(t *testing.T) {
	cases := []struct {
		name           string
		confidence     float64
		wantDepartment string
		wantSource     DecisionSource
	}{
		{"high confidence routes AI verbatim", 0.9, "Cardiology", SourceAI},
		{"mid confidence routes AI lower trust", 0.7, "Cardiology", SourceAILowTrust},
		{"low confidence routes rules", 0.4, "Pulmonology", SourceRules},
		{"exactly 0.8 is not high trust", 0.8, "Cardiology", SourceAILowTrust},
		{"exactly 0.6 is not AI routed", 0.6, "Pulmonology", SourceRules},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d, score := Blend(ruleScoreFixture(), aiDecisionFixture(tc.confidence))
			if d.Department != tc.wantDepartment {
				t.Errorf("Department = %q, want %q", d.Department, tc.wantDepartment)
			}
			if d.Source != tc.wantSource {
				t.Errorf("Source = %q, want %q", d.Source, tc.wantSource)
			}
			if score <= 0 {
				t.Errorf("score = %v, want reported even under rule routing", score)
			}
		})
	}
}

func TestBlendPreservesParserFallbackSource(t *testing.T) {
	ai := &Decision{
		EmergencyLevel: LevelModerate,
		Confidence:     heuristicConfidence,
		Category:       CategorySemiUrgent,
		Reasoning:      "model output had no structured block",
		Source:         SourceParserFallback,
	}

	d, _ := Blend(ruleScoreFixture(), ai)
	if d.Source != SourceParserFallback {
		t.Errorf("Source = %q, want %q", d.Source, SourceParserFallback)
	}
	if d.Category != CategoryUrgent {
		t.Errorf("Category = %q, want rule category", d.Category)
	}
}

func TestBlendRuleRoutingKeepsRuleFields(t *testing.T) {
	rule := ruleScoreFixture()
	d, _ := Blend(rule, aiDecisionFixture(0.4))

	if d.Category != CategoryUrgent {
		t.Errorf("Category = %q, want rule category", d.Category)
	}
	if d.EstimatedWaitMinutes != 30 {
		t.Errorf("EstimatedWaitMinutes = %d, want rule wait", d.EstimatedWaitMinutes)
	}
	if d.EmergencyLevel != LevelHigh {
		t.Errorf("EmergencyLevel = %q, want level from rule priority", d.EmergencyLevel)
	}
}
