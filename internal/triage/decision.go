// Package triage implements the adaptive case-triage engine: free-text case
// descriptions in, explainable priority decisions out. Decisions come from a
// cached inference call blended with a deterministic rule table; every case
// receives a well-formed decision even when inference fails.
package triage

import (
	"strings"
	"time"
)

// EmergencyLevel grades how quickly a case must be seen.
type EmergencyLevel string

const (
	LevelCritical EmergencyLevel = "critical"
	LevelHigh     EmergencyLevel = "high"
	LevelModerate EmergencyLevel = "moderate"
	LevelLow      EmergencyLevel = "low"
)

// Priority maps an emergency level to its numeric tier (critical=4 .. low=1).
func (l EmergencyLevel) Priority() int {
	switch l {
	case LevelCritical:
		return 4
	case LevelHigh:
		return 3
	case LevelModerate:
		return 2
	case LevelLow:
		return 1
	default:
		return 2
	}
}

// ParseEmergencyLevel normalizes an externally supplied level. Unknown values
// degrade to moderate rather than failing.
func ParseEmergencyLevel(raw string) EmergencyLevel {
	switch EmergencyLevel(strings.ToLower(strings.TrimSpace(raw))) {
	case LevelCritical:
		return LevelCritical
	case LevelHigh:
		return LevelHigh
	case LevelModerate:
		return LevelModerate
	case LevelLow:
		return LevelLow
	default:
		return LevelModerate
	}
}

// Category is the triage queue a case is routed to.
type Category string

const (
	CategoryEmergency  Category = "Emergency"
	CategoryUrgent     Category = "Urgent"
	CategorySemiUrgent Category = "Semi-urgent"
	CategoryNonUrgent  Category = "Non-urgent"
)

// ParseCategory normalizes an externally supplied category. Unknown values
// degrade to Semi-urgent rather than failing.
func ParseCategory(raw string) Category {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "emergency":
		return CategoryEmergency
	case "urgent":
		return CategoryUrgent
	case "semi-urgent", "semi urgent", "semiurgent":
		return CategorySemiUrgent
	case "non-urgent", "non urgent", "nonurgent", "routine":
		return CategoryNonUrgent
	default:
		return CategorySemiUrgent
	}
}

// DecisionSource records which path in the pipeline produced a decision.
type DecisionSource string

const (
	SourceAI             DecisionSource = "ai"
	SourceAILowTrust     DecisionSource = "ai_low_trust"
	SourceRules          DecisionSource = "rules"
	SourceParserFallback DecisionSource = "parser_fallback"
	SourceParserDefault  DecisionSource = "parser_default"
	SourceCache          DecisionSource = "cache"
)

// Field bounds enforced once, at the parser boundary.
const (
	maxActions        = 3
	maxRiskFactors    = 3
	maxReasoningChars = 500
	maxWaitMinutes    = 300
)

// CaseInput is one free-text case description awaiting triage. Immutable once
// created; produced by the intake layer.
type CaseInput struct {
	ID                  string    `json:"id,omitempty"`
	SymptomText         string    `json:"symptom_text"`
	AgeBand             string    `json:"age_band,omitempty"`
	History             string    `json:"history,omitempty"`
	Context             string    `json:"context,omitempty"`
	Insurance           string    `json:"insurance,omitempty"`
	ArrivalTime         time.Time `json:"arrival_time,omitempty"`
	RequestedDepartment string    `json:"requested_department,omitempty"`
}

// Decision is the triage outcome for a single case. All fields are guaranteed
// in-range once a Decision leaves the parser or blender.
type Decision struct {
	EmergencyLevel       EmergencyLevel `json:"emergency_level"`
	Confidence           float64        `json:"confidence"`
	Category             Category       `json:"category"`
	EstimatedWaitMinutes int            `json:"estimated_wait_minutes"`
	Department           string         `json:"department"`
	Actions              []string       `json:"actions,omitempty"`
	RiskFactors          []string       `json:"risk_factors,omitempty"`
	Reasoning            string         `json:"reasoning,omitempty"`
	Source               DecisionSource `json:"source,omitempty"`
}

// ScoredCase pairs a case with its decision and blended score for allocation.
// Transient; lifetime is one scoring transaction.
type ScoredCase struct {
	Case                CaseInput `json:"case"`
	Decision            Decision  `json:"decision"`
	FinalScore          float64   `json:"final_score"`
	ResourceRequirement string    `json:"resource_requirement,omitempty"`
}

// BatchResult is one slot of a DecideBatch response; Index matches the input
// position. Exactly one of Decision or Err is meaningful.
type BatchResult struct {
	Index    int
	Decision Decision
	Err      error
}

func clampConfidence(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func clampWaitMinutes(v int) int {
	if v < 0 {
		return 0
	}
	if v > maxWaitMinutes {
		return maxWaitMinutes
	}
	return v
}

func truncateList(items []string, max int) []string {
	cleaned := make([]string, 0, max)
	for _, item := range items {
		trimmed := strings.TrimSpace(item)
		if trimmed == "" {
			continue
		}
		cleaned = append(cleaned, trimmed)
		if len(cleaned) == max {
			break
		}
	}
	if len(cleaned) == 0 {
		return nil
	}
	return cleaned
}

func truncateReasoning(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= maxReasoningChars {
		return s
	}
	return s[:maxReasoningChars]
}

// normalize clamps every field of a decision into its declared range. Applied
// exactly once to anything that crossed the inference boundary.
func (d Decision) normalize() Decision {
	d.EmergencyLevel = ParseEmergencyLevel(string(d.EmergencyLevel))
	d.Category = ParseCategory(string(d.Category))
	d.Confidence = clampConfidence(d.Confidence)
	d.EstimatedWaitMinutes = clampWaitMinutes(d.EstimatedWaitMinutes)
	d.Department = strings.TrimSpace(d.Department)
	d.Actions = truncateList(d.Actions, maxActions)
	d.RiskFactors = truncateList(d.RiskFactors, maxRiskFactors)
	d.Reasoning = truncateReasoning(d.Reasoning)
	return d
}
