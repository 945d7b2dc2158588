package triage

import (
	"strings"
	"time"
)

const (
	emergencyDepartment = "Emergency Medicine"
	defaultDepartment   = "General Medicine"

	// Confidence attached to purely rule-based decisions.
	ruleConfidence = 0.75
)

// ruleEntry maps a symptom keyword to a priority tier and routing defaults.
type ruleEntry struct {
	keyword  string
	priority int
	category Category
	wait     int
}

// ruleTable is scanned top to bottom; the first substring match wins, so more
// specific phrases sit above the generic terms they contain. Read-only after
// process start.
var ruleTable = []ruleEntry{
	{"cardiac arrest", 4, CategoryEmergency, 0},
	{"not breathing", 4, CategoryEmergency, 0},
	{"chest pain", 4, CategoryEmergency, 0},
	{"heart attack", 4, CategoryEmergency, 0},
	{"stroke", 4, CategoryEmergency, 0},
	{"unconscious", 4, CategoryEmergency, 0},
	{"unresponsive", 4, CategoryEmergency, 0},
	{"severe bleeding", 4, CategoryEmergency, 0},
	{"anaphylaxis", 4, CategoryEmergency, 0},
	{"choking", 4, CategoryEmergency, 0},
	{"seizure", 4, CategoryEmergency, 0},
	{"overdose", 4, CategoryEmergency, 0},

	{"difficulty breathing", 3, CategoryUrgent, 30},
	{"shortness of breath", 3, CategoryUrgent, 30},
	{"broken bone", 3, CategoryUrgent, 30},
	{"fracture", 3, CategoryUrgent, 30},
	{"deep cut", 3, CategoryUrgent, 30},
	{"head injury", 3, CategoryUrgent, 30},
	{"concussion", 3, CategoryUrgent, 30},
	{"high fever", 3, CategoryUrgent, 30},
	{"severe pain", 3, CategoryUrgent, 30},
	{"allergic reaction", 3, CategoryUrgent, 30},

	// Specific low-acuity phrases above the generic "burn" entry.
	{"minor burn", 1, CategoryNonUrgent, 180},
	{"sunburn", 1, CategoryNonUrgent, 180},
	{"burn", 3, CategoryUrgent, 30},

	{"abdominal pain", 2, CategorySemiUrgent, 90},
	{"back pain", 2, CategorySemiUrgent, 90},
	{"persistent cough", 2, CategorySemiUrgent, 90},
	{"vomiting", 2, CategorySemiUrgent, 90},
	{"dehydration", 2, CategorySemiUrgent, 90},
	{"migraine", 2, CategorySemiUrgent, 90},
	{"dizziness", 2, CategorySemiUrgent, 90},

	{"minor cut", 1, CategoryNonUrgent, 180},
	{"sprain", 1, CategoryNonUrgent, 180},
	{"mild fever", 1, CategoryNonUrgent, 180},
	{"rash", 1, CategoryNonUrgent, 180},
	{"cold symptoms", 1, CategoryNonUrgent, 180},
	{"sore throat", 1, CategoryNonUrgent, 180},
	{"runny nose", 1, CategoryNonUrgent, 180},
	{"ear pain", 1, CategoryNonUrgent, 180},
	{"earache", 1, CategoryNonUrgent, 180},
	{"headache", 1, CategoryNonUrgent, 180},
	{"prescription refill", 1, CategoryNonUrgent, 180},
	{"follow-up", 1, CategoryNonUrgent, 180},
}

// defaultRule applies when no keyword matches.
var defaultRule = ruleEntry{priority: 2, category: CategorySemiUrgent, wait: 90}

// ageMultipliers weight the rule score by age band. Pediatric and senior cases
// score above baseline. Keys are lowercase.
var ageMultipliers = map[string]float64{
	"infant":    1.4,
	"pediatric": 1.3,
	"child":     1.3,
	"adult":     1.0,
	"senior":    1.25,
	"elderly":   1.25,
}

// insuranceMultipliers are all neutral today; the table exists so the weights
// can change without touching the scoring code.
var insuranceMultipliers = map[string]float64{
	"medicare":  1.0,
	"medicaid":  1.0,
	"private":   1.0,
	"self-pay":  1.0,
	"uninsured": 1.0,
}

type departmentEntry struct {
	keyword    string
	department string
}

// departmentTable routes non-emergency cases; consulted only when the case is
// not already classified Emergency.
var departmentTable = []departmentEntry{
	{"heart", "Cardiology"},
	{"palpitations", "Cardiology"},
	{"blood pressure", "Cardiology"},
	{"broken bone", "Orthopedics"},
	{"fracture", "Orthopedics"},
	{"sprain", "Orthopedics"},
	{"joint", "Orthopedics"},
	{"migraine", "Neurology"},
	{"headache", "Neurology"},
	{"dizziness", "Neurology"},
	{"numbness", "Neurology"},
	{"abdominal", "Gastroenterology"},
	{"stomach", "Gastroenterology"},
	{"nausea", "Gastroenterology"},
	{"vomiting", "Gastroenterology"},
	{"breathing", "Pulmonology"},
	{"asthma", "Pulmonology"},
	{"cough", "Pulmonology"},
	{"rash", "Dermatology"},
	{"skin", "Dermatology"},
	{"burn", "Dermatology"},
	{"pregnan", "Obstetrics"},
	{"ear pain", "Otolaryngology"},
	{"earache", "Otolaryngology"},
	{"sore throat", "Otolaryngology"},
	{"eye", "Ophthalmology"},
	{"vision", "Ophthalmology"},
	{"urin", "Urology"},
	{"kidney", "Urology"},
	{"anxiety", "Behavioral Health"},
	{"depress", "Behavioral Health"},
	{"pediatric", "Pediatrics"},
	{"child", "Pediatrics"},
}

// RuleScore is the deterministic half of a blended decision: a rule-table
// match plus the contextual multipliers in effect for the case.
type RuleScore struct {
	Priority      int
	Category      Category
	WaitMinutes   int
	Department    string
	AgeMult       float64
	InsuranceMult float64
	TimeMult      float64
}

// EvaluateRules scores a sanitized case against the rule and multiplier
// tables. It never fails; unmatched cases land on the moderate default.
func EvaluateRules(in CaseInput) RuleScore {
	lower := strings.ToLower(in.SymptomText)
	entry := matchRule(lower)
	return RuleScore{
		Priority:      entry.priority,
		Category:      entry.category,
		WaitMinutes:   entry.wait,
		Department:    ResolveDepartment(lower, entry.category, in.RequestedDepartment),
		AgeMult:       ageMultiplier(in.AgeBand),
		InsuranceMult: insuranceMultiplier(in.Insurance),
		TimeMult:      timeMultiplier(in.ArrivalTime),
	}
}

// Multiplier is the combined contextual weight applied to priority scores.
func (r RuleScore) Multiplier() float64 {
	return r.AgeMult * r.InsuranceMult * r.TimeMult
}

// Score is the rule-only final score: base priority times every multiplier.
func (r RuleScore) Score() float64 {
	return float64(r.Priority) * r.Multiplier()
}

// Decision materializes the rule score as a full Decision.
func (r RuleScore) Decision() Decision {
	return Decision{
		EmergencyLevel:       levelForPriority(r.Priority),
		Confidence:           ruleConfidence,
		Category:             r.Category,
		EstimatedWaitMinutes: r.WaitMinutes,
		Department:           r.Department,
		Reasoning:            "matched deterministic triage rules",
		Source:               SourceRules,
	}
}

func matchRule(lower string) ruleEntry {
	for _, entry := range ruleTable {
		if strings.Contains(lower, entry.keyword) {
			return entry
		}
	}
	return defaultRule
}

// ResolveDepartment picks the target department for a case. Emergency cases
// always route to the emergency department; otherwise the first keyword match
// wins, then the caller's requested department, then the default.
func ResolveDepartment(text string, category Category, requested string) string {
	if category == CategoryEmergency {
		return emergencyDepartment
	}
	lower := strings.ToLower(text)
	for _, entry := range departmentTable {
		if strings.Contains(lower, entry.keyword) {
			return entry.department
		}
	}
	if requested = strings.TrimSpace(requested); requested != "" {
		return requested
	}
	return defaultDepartment
}

func levelForPriority(priority int) EmergencyLevel {
	switch priority {
	case 4:
		return LevelCritical
	case 3:
		return LevelHigh
	case 2:
		return LevelModerate
	default:
		return LevelLow
	}
}

func ageMultiplier(band string) float64 {
	if m, ok := ageMultipliers[strings.ToLower(strings.TrimSpace(band))]; ok {
		return m
	}
	return 1.0
}

func insuranceMultiplier(insurance string) float64 {
	if m, ok := insuranceMultipliers[strings.ToLower(strings.TrimSpace(insurance))]; ok {
		return m
	}
	return 1.0
}

// timeMultiplier weights arrivals during evening peak hours and weekends, when
// staffing is thinnest. Zero arrival times stay neutral.
func timeMultiplier(t time.Time) float64 {
	if t.IsZero() {
		return 1.0
	}
	mult := 1.0
	if wd := t.Weekday(); wd == time.Saturday || wd == time.Sunday {
		mult *= 1.15
	}
	if hour := t.Hour(); hour >= 17 && hour < 23 {
		mult *= 1.2
	}
	return mult
}
