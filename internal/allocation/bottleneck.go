package allocation

import (
	"fmt"
	"sort"
)

// Stage risk thresholds: a stage holding more than highLoadPercent of
// in-flight cases is High, more than mediumLoadPercent is Medium.
const (
	highLoadPercent   = 60
	mediumLoadPercent = 40
)

// RiskLevel grades congestion for one stage or a whole report.
type RiskLevel string

const (
	RiskLow    RiskLevel = "Low"
	RiskMedium RiskLevel = "Medium"
	RiskHigh   RiskLevel = "High"
)

func (r RiskLevel) rank() int {
	switch r {
	case RiskHigh:
		return 2
	case RiskMedium:
		return 1
	default:
		return 0
	}
}

// StageLoad is the congestion reading for one pipeline stage.
type StageLoad struct {
	Stage      string    `json:"stage"`
	Count      int       `json:"count"`
	Percentage float64   `json:"percentage"`
	Risk       RiskLevel `json:"risk"`
}

// BottleneckReport is the on-demand congestion picture across the patient
// pipeline. Holds no state between calls.
type BottleneckReport struct {
	StageCounts     map[string]int `json:"stage_counts"`
	Stages          []StageLoad    `json:"stages,omitempty"`
	RiskLevel       RiskLevel      `json:"risk_level"`
	Recommendations []string       `json:"recommendations,omitempty"`
}

// DetectBottlenecks computes per-stage load percentages and the overall risk
// level (the maximum across stages). Empty input yields a Low report with no
// stage entries.
func DetectBottlenecks(stageCounts map[string]int) BottleneckReport {
	report := BottleneckReport{
		StageCounts: stageCounts,
		RiskLevel:   RiskLow,
	}

	total := 0
	for _, count := range stageCounts {
		if count > 0 {
			total += count
		}
	}
	if total == 0 {
		bottleneckReportsTotal.WithLabelValues(string(RiskLow)).Inc()
		return report
	}

	for stage, count := range stageCounts {
		if count <= 0 {
			continue
		}
		pct := 100 * float64(count) / float64(total)
		load := StageLoad{
			Stage:      stage,
			Count:      count,
			Percentage: pct,
			Risk:       riskForPercentage(pct),
		}
		report.Stages = append(report.Stages, load)
		if load.Risk.rank() > report.RiskLevel.rank() {
			report.RiskLevel = load.Risk
		}
	}

	// Busiest stage first; name breaks ties so output is stable.
	sort.Slice(report.Stages, func(i, j int) bool {
		if report.Stages[i].Percentage != report.Stages[j].Percentage {
			return report.Stages[i].Percentage > report.Stages[j].Percentage
		}
		return report.Stages[i].Stage < report.Stages[j].Stage
	})

	for _, load := range report.Stages {
		switch load.Risk {
		case RiskHigh:
			report.Recommendations = append(report.Recommendations,
				fmt.Sprintf("Stage %q holds %.0f%% of in-flight cases; shift staff there now", load.Stage, load.Percentage))
		case RiskMedium:
			report.Recommendations = append(report.Recommendations,
				fmt.Sprintf("Stage %q is at %.0f%% load; monitor and prepare to rebalance", load.Stage, load.Percentage))
		}
	}

	bottleneckReportsTotal.WithLabelValues(string(report.RiskLevel)).Inc()
	return report
}

func riskForPercentage(pct float64) RiskLevel {
	switch {
	case pct > highLoadPercent:
		return RiskHigh
	case pct > mediumLoadPercent:
		return RiskMedium
	default:
		return RiskLow
	}
}
