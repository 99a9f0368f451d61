package types

import (
	"encoding/json"
	"testing"
)

func TestParseSeverity(t *testing.T) {
	tests := []struct {
		in      string
		want    Severity
		wantErr bool
	}{
		{"off", SeverityOff, false},
		{"0", SeverityOff, false},
		{"warn", SeverityWarn, false},
		{"Warning", SeverityWarn, false},
		{"1", SeverityWarn, false},
		{" error ", SeverityError, false},
		{"2", SeverityError, false},
		{"fatal", SeverityOff, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseSeverity(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseSeverity(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseSeverity(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestSeverity_JSON(t *testing.T) {
	data, err := json.Marshal(Finding{RuleID: "no-eval", Severity: SeverityError})
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if decoded["severity"] != "error" {
		t.Errorf("severity = %v, want \"error\"", decoded["severity"])
	}
}

func TestFinding_Less(t *testing.T) {
	a := Finding{Line: 1, Column: 5, RuleID: "b"}
	b := Finding{Line: 2, Column: 1, RuleID: "a"}
	c := Finding{Line: 1, Column: 5, RuleID: "c"}

	if !a.Less(b) {
		t.Errorf("line 1 should sort before line 2")
	}
	if !a.Less(c) {
		t.Errorf("equal positions should sort by rule ID")
	}
	if b.Less(a) {
		t.Errorf("Less() is not antisymmetric")
	}
}

func TestRunID(t *testing.T) {
	id := NewRunID()

	parsed, err := ParseRunID(string(id))
	if err != nil {
		t.Fatalf("ParseRunID() error = %v", err)
	}
	if parsed != id {
		t.Errorf("ParseRunID() = %v, want %v", parsed, id)
	}
	if RunIDTime(id).IsZero() {
		t.Errorf("RunIDTime() returned zero time for a UUIDv7")
	}

	if _, err := ParseRunID("not-a-uuid"); err == nil {
		t.Errorf("ParseRunID() accepted malformed input")
	}
	if !RunIDTime("bogus").IsZero() {
		t.Errorf("RunIDTime() should return zero time for invalid IDs")
	}
}
