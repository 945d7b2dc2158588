package triage

import (
	"errors"
	"strings"
	"testing"
)

func TestSanitizeCaseText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "removes markup tags",
			input: "<b>chest pain</b> radiating to <i>left arm</i>",
			want:  "chest pain radiating to left arm",
		},
		{
			name:  "strips control characters",
			input: "severe\x00 headache\x1b with nausea",
			want:  "severe headache with nausea",
		},
		{
			name:  "collapses whitespace",
			input: "  shortness   of\t\tbreath\n\nsince  morning ",
			want:  "shortness of breath since morning",
		},
		{
			name:  "script tag content outside tags survives",
			input: "<script>fever</script> and chills",
			want:  "fever and chills",
		},
		{
			name:  "plain text unchanged",
			input: "ankle sprain after fall",
			want:  "ankle sprain after fall",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SanitizeCaseText(tt.input)
			if err != nil {
				t.Fatalf("SanitizeCaseText() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("SanitizeCaseText() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSanitizeCaseText_Empty(t *testing.T) {
	for _, input := range []string{"", "   ", "\t\n", "<div></div>", "\x00\x01"} {
		if _, err := SanitizeCaseText(input); !errors.Is(err, ErrEmptyInput) {
			t.Errorf("SanitizeCaseText(%q) error = %v, want ErrEmptyInput", input, err)
		}
	}
}

func TestSanitizeCaseText_TooLong(t *testing.T) {
	long := strings.Repeat("chest pain ", 120) // ~1300 chars after cleaning
	if _, err := SanitizeCaseText(long); !errors.Is(err, ErrInputTooLong) {
		t.Errorf("SanitizeCaseText() error = %v, want ErrInputTooLong", err)
	}

	// Exactly at the cap is accepted.
	atCap := strings.Repeat("a", maxCaseTextChars)
	if _, err := SanitizeCaseText(atCap); err != nil {
		t.Errorf("SanitizeCaseText() at cap error = %v, want nil", err)
	}
}

func TestSanitizeCase_CleansOptionalFields(t *testing.T) {
	in := CaseInput{
		SymptomText: "persistent  cough",
		AgeBand:     " Senior ",
		History:     "<p>asthma</p>",
		Context:     "arrived\tby  ambulance",
		Insurance:   " Private ",
	}

	got, err := sanitizeCase(in)
	if err != nil {
		t.Fatalf("sanitizeCase() error = %v", err)
	}
	if got.SymptomText != "persistent cough" {
		t.Errorf("SymptomText = %q", got.SymptomText)
	}
	if got.AgeBand != "senior" {
		t.Errorf("AgeBand = %q, want lowercased", got.AgeBand)
	}
	if got.History != "asthma" {
		t.Errorf("History = %q", got.History)
	}
	if got.Context != "arrived by ambulance" {
		t.Errorf("Context = %q", got.Context)
	}
	if got.Insurance != "private" {
		t.Errorf("Insurance = %q, want lowercased", got.Insurance)
	}
}

func TestSanitizeCase_RejectsEmptyPrimaryText(t *testing.T) {
	_, err := sanitizeCase(CaseInput{SymptomText: "<br/>", History: "still present"})
	if !errors.Is(err, ErrEmptyInput) {
		t.Errorf("sanitizeCase() error = %v, want ErrEmptyInput", err)
	}
}
