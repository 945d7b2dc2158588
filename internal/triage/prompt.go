package triage

import (
	"fmt"
	"strings"
)

// buildTriagePrompt asks the model for exactly one JSON object matching the
// decisionWire schema.
func buildTriagePrompt(in CaseInput) string {
	var b strings.Builder
	b.WriteString("You are a hospital triage assistant. Assess the case below and respond with a single JSON object.\n")
	b.WriteString("Return valid JSON only. No markdown fences, no commentary.\n\n")
	b.WriteString("Schema:\n")
	b.WriteString(`{
  "emergency_level": "critical|high|moderate|low",
  "confidence": 0.0,
  "category": "Emergency|Urgent|Semi-urgent|Non-urgent",
  "estimated_wait_minutes": 0,
  "department": "target department",
  "actions": ["up to three immediate actions"],
  "risk_factors": ["up to three risk factors"],
  "reasoning": "short explanation, 500 characters max"
}`)
	b.WriteString("\n\nCase description: ")
	b.WriteString(in.SymptomText)
	if in.AgeBand != "" {
		fmt.Fprintf(&b, "\nAge band: %s", in.AgeBand)
	}
	if in.History != "" {
		fmt.Fprintf(&b, "\nMedical history: %s", in.History)
	}
	if in.Context != "" {
		fmt.Fprintf(&b, "\nAdditional context: %s", in.Context)
	}
	return b.String()
}
