package triage

import (
	"math"
	"testing"
	"time"
)

func TestMatchRuleKeywordPriorities(t *testing.T) {
	cases := []struct {
		name         string
		text         string
		wantPriority int
		wantCategory Category
	}{
		{"chest pain is top tier", "crushing chest pain radiating to left arm", 4, CategoryEmergency},
		{"stroke is top tier", "possible stroke, face drooping", 4, CategoryEmergency},
		{"fracture is urgent", "suspected wrist fracture after a fall", 3, CategoryUrgent},
		{"specific phrase wins over generic substring", "minor burn on finger from stove", 1, CategoryNonUrgent},
		{"generic burn stays urgent", "large burn across the forearm", 3, CategoryUrgent},
		{"semi-urgent keyword", "two days of abdominal pain", 2, CategorySemiUrgent},
		{"low acuity keyword", "itchy rash on both arms", 1, CategoryNonUrgent},
		{"no match falls to default", "feeling generally unwell", 2, CategorySemiUrgent},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			entry := matchRule(tc.text)
			if entry.priority != tc.wantPriority {
				t.Errorf("priority = %d, want %d", entry.priority, tc.wantPriority)
			}
			if entry.category != tc.wantCategory {
				t.Errorf("category = %q, want %q", entry.category, tc.wantCategory)
			}
		})
	}
}

func TestAgeMultiplierWeights(t *testing.T) {
	if m := ageMultiplier("pediatric"); m <= 1.0 {
		t.Errorf("pediatric multiplier = %v, want > 1.0", m)
	}
	if m := ageMultiplier("senior"); m <= 1.0 {
		t.Errorf("senior multiplier = %v, want > 1.0", m)
	}
	if m := ageMultiplier("adult"); m != 1.0 {
		t.Errorf("adult multiplier = %v, want 1.0", m)
	}
	if m := ageMultiplier("unknown band"); m != 1.0 {
		t.Errorf("unknown band multiplier = %v, want 1.0", m)
	}
}

func TestInsuranceMultipliersAreNeutral(t *testing.T) {
	for insurance := range insuranceMultipliers {
		if m := insuranceMultiplier(insurance); m != 1.0 {
			t.Errorf("insuranceMultiplier(%q) = %v, want 1.0", insurance, m)
		}
	}
}

func TestTimeMultiplier(t *testing.T) {
	weekdayNoon := time.Date(2025, 3, 12, 12, 0, 0, 0, time.UTC) // Wednesday
	weekdayPeak := time.Date(2025, 3, 12, 19, 0, 0, 0, time.UTC) // Wednesday evening
	weekendNoon := time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC) // Saturday
	weekendPeak := time.Date(2025, 3, 15, 19, 0, 0, 0, time.UTC) // Saturday evening

	if m := timeMultiplier(time.Time{}); m != 1.0 {
		t.Errorf("zero time multiplier = %v, want 1.0", m)
	}
	if m := timeMultiplier(weekdayNoon); m != 1.0 {
		t.Errorf("weekday noon multiplier = %v, want 1.0", m)
	}
	if m := timeMultiplier(weekdayPeak); m <= 1.0 {
		t.Errorf("weekday peak multiplier = %v, want > 1.0", m)
	}
	if m := timeMultiplier(weekendNoon); m <= 1.0 {
		t.Errorf("weekend multiplier = %v, want > 1.0", m)
	}
	if m := timeMultiplier(weekendPeak); m <= timeMultiplier(weekendNoon) {
		t.Errorf("weekend peak multiplier = %v, want above weekend baseline", m)
	}
}

func TestResolveDepartment(t *testing.T) {
	cases := []struct {
		name      string
		text      string
		category  Category
		requested string
		want      string
	}{
		{"emergency always routes to emergency", "migraine for a week", CategoryEmergency, "Neurology", emergencyDepartment},
		{"keyword match", "migraine for a week", CategorySemiUrgent, "", "Neurology"},
		{"keyword beats requested", "persistent cough at night", CategorySemiUrgent, "Dermatology", "Pulmonology"},
		{"requested as tiebreaker", "feeling generally unwell", CategorySemiUrgent, "Internal Medicine", "Internal Medicine"},
		{"default when nothing matches", "feeling generally unwell", CategorySemiUrgent, "", defaultDepartment},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ResolveDepartment(tc.text, tc.category, tc.requested)
			if got != tc.want {
				t.Errorf("ResolveDepartment = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestEvaluateRulesCombinesMultipliers(t *testing.T) {
	in := CaseInput{
		SymptomText: "sudden chest pain and sweating",
		AgeBand:     "senior",
		Insurance:   "medicare",
		ArrivalTime: time.Date(2025, 3, 15, 19, 30, 0, 0, time.UTC), // Saturday evening
	}

	score := EvaluateRules(in)
	if score.Priority != 4 {
		t.Fatalf("Priority = %d, want 4", score.Priority)
	}
	if score.Category != CategoryEmergency {
		t.Errorf("Category = %q, want Emergency", score.Category)
	}
	if score.Department != emergencyDepartment {
		t.Errorf("Department = %q, want %q", score.Department, emergencyDepartment)
	}

	want := 4.0 * 1.25 * 1.0 * (1.15 * 1.2)
	if got := score.Score(); math.Abs(got-want) > 1e-9 {
		t.Errorf("Score = %v, want %v", got, want)
	}
}

func TestRuleScoreDecisionFields(t *testing.T) {
	score := EvaluateRules(CaseInput{SymptomText: "itchy rash on both arms"})
	d := score.Decision()
	if d.EmergencyLevel != LevelLow {
		t.Errorf("EmergencyLevel = %q, want low", d.EmergencyLevel)
	}
	if d.Category != CategoryNonUrgent {
		t.Errorf("Category = %q, want Non-urgent", d.Category)
	}
	if d.EstimatedWaitMinutes != 180 {
		t.Errorf("EstimatedWaitMinutes = %d, want 180", d.EstimatedWaitMinutes)
	}
	if d.Department != "Dermatology" {
		t.Errorf("Department = %q, want Dermatology", d.Department)
	}
	if d.Source != SourceRules {
		t.Errorf("Source = %q, want %q", d.Source, SourceRules)
	}
}
