package domain

import "testing"

func TestStageRoundTrip(t *testing.T) {
	labels := []string{
		"New Lead",
		"Verified Lead",
		"Qualified (Vetting)",
		"Site Survey Scheduled",
		"Proposal Sent",
		"Negotiation/Finance",
		"Closed Won / Project",
		"Closed Lost",
	}

	for _, label := range labels {
		token := NormalizeStage(label)
		if !IsKnownStage(token) {
			t.Errorf("NormalizeStage(%q) = %q, not a known stage token", label, token)
		}
		if got := DenormalizeStage(token); got != label {
			t.Errorf("round trip %q -> %q -> %q", label, token, got)
		}
	}
}

func TestNormalizeIrregularLabels(t *testing.T) {
	cases := []struct {
		label string
		want  string
	}{
		{"Closed Won / Project", StageClosedWon},
		{"Negotiation/Finance", StageNegotiation},
		{"Qualified (Vetting)", StageQualified},
		{"New Lead", StageNewLead},
		{"Site Survey Scheduled", StageSiteSurveyScheduled},
	}

	for _, tc := range cases {
		if got := NormalizeStage(tc.label); got != tc.want {
			t.Errorf("NormalizeStage(%q) = %q, want %q", tc.label, got, tc.want)
		}
	}
}

func TestDenormalizeUnknownTokenFallsBack(t *testing.T) {
	for _, token := range []string{"", "Archived", "closed_won", "NEW_LEAD "} {
		if got := DenormalizeStage(token); got != "New Lead" {
			t.Errorf("DenormalizeStage(%q) = %q, want safe default %q", token, got, "New Lead")
		}
	}
}

func TestPipelineStagesAllKnown(t *testing.T) {
	if len(PipelineStages) != 8 {
		t.Fatalf("expected 8 pipeline stages, got %d", len(PipelineStages))
	}
	for _, token := range PipelineStages {
		if !IsKnownStage(token) {
			t.Errorf("stage %q missing from known set", token)
		}
	}
	if PipelineStages[0] != StageNewLead {
		t.Errorf("first stage = %q, want %q", PipelineStages[0], StageNewLead)
	}
}
