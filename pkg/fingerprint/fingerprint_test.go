package fingerprint

import (
	"testing"
)

func TestComputeIsDeterministic(t *testing.T) {
	v := NoteVersion{
		Subjective: "headache",
		Objective:  "bp normal",
		Assessment: "tension",
		Plan:       "rest",
	}

	first := Compute(v)
	second := Compute(v)
	if first != second {
		t.Errorf("Compute not deterministic: %s != %s", first, second)
	}
	if len(first) != 64 {
		t.Errorf("digest length = %d, want 64 hex chars", len(first))
	}
}

func TestComputeChangesWithEveryField(t *testing.T) {
	base := NoteVersion{
		Subjective: "s",
		Objective:  "o",
		Assessment: "a",
		Plan:       "p",
	}
	baseDigest := Compute(base)

	tests := []struct {
		name   string
		mutate func(v NoteVersion) NoteVersion
	}{
		{"subjective", func(v NoteVersion) NoteVersion { v.Subjective = "x"; return v }},
		{"objective", func(v NoteVersion) NoteVersion { v.Objective = "x"; return v }},
		{"assessment", func(v NoteVersion) NoteVersion { v.Assessment = "x"; return v }},
		{"plan", func(v NoteVersion) NoteVersion { v.Plan = "x"; return v }},
		{"ai approved", func(v NoteVersion) NoteVersion { v.AiApproved = true; return v }},
		{"user approved", func(v NoteVersion) NoteVersion { v.UserApproved = true; return v }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if Compute(tt.mutate(base)) == baseDigest {
				t.Errorf("digest unchanged after mutating %s", tt.name)
			}
		})
	}
}

func TestComputeSeparatesSections(t *testing.T) {
	// Moving text across a section boundary must change the digest.
	a := Compute(NoteVersion{Subjective: "ab", Objective: "c"})
	b := Compute(NoteVersion{Subjective: "a", Objective: "bc"})
	if a == b {
		t.Error("section boundary not encoded in digest")
	}
}
