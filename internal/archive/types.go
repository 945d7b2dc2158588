package archive

import "time"

// DecisionRecord is the top-level structure archived to S3 for model
// evaluation and retraining.
type DecisionRecord struct {
	Version    string          `json:"version"` // "1.0"
	CaseID     string          `json:"case_id"`
	ArchivedAt time.Time       `json:"archived_at"`
	Case       CaseDetails     `json:"case"`
	Decision   DecisionDetails `json:"decision"`
	FinalScore float64         `json:"final_score"`
}

// CaseDetails is the case input after PII scrubbing. Free-text fields must
// never reach S3 unscrubbed.
type CaseDetails struct {
	SymptomText         string    `json:"symptom_text"`
	AgeBand             string    `json:"age_band,omitempty"`
	History             string    `json:"history,omitempty"`
	Context             string    `json:"context,omitempty"`
	Insurance           string    `json:"insurance,omitempty"`
	ArrivalTime         time.Time `json:"arrival_time,omitempty"`
	RequestedDepartment string    `json:"requested_department,omitempty"`
}

// DecisionDetails carries the decision fields worth training on.
type DecisionDetails struct {
	EmergencyLevel       string   `json:"emergency_level"`
	Confidence           float64  `json:"confidence"`
	Category             string   `json:"category"`
	EstimatedWaitMinutes int      `json:"estimated_wait_minutes"`
	Department           string   `json:"department,omitempty"`
	Actions              []string `json:"actions,omitempty"`
	RiskFactors          []string `json:"risk_factors,omitempty"`
	Reasoning            string   `json:"reasoning,omitempty"`
	Source               string   `json:"source"`
}

// ManifestEntry is one JSONL line in the monthly manifest file.
type ManifestEntry struct {
	CaseID         string  `json:"case_id"`
	S3Key          string  `json:"s3_key"`
	Category       string  `json:"category"`
	EmergencyLevel string  `json:"emergency_level"`
	Source         string  `json:"source"`
	FinalScore     float64 `json:"final_score"`
	ArchivedAt     string  `json:"archived_at"`
}
