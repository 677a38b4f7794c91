package domain

import "strings"

// Canonical pipeline stage tokens as persisted. Storage only ever sees these;
// display labels exist at the transport boundary.
const (
	StageNewLead             = "New_Lead"
	StageVerifiedLead        = "Verified_Lead"
	StageQualified           = "Qualified"
	StageSiteSurveyScheduled = "Site_Survey_Scheduled"
	StageProposalSent        = "Proposal_Sent"
	StageNegotiation         = "Negotiation"
	StageClosedWon           = "Closed_Won"
	StageClosedLost          = "Closed_Lost"
)

// PipelineStages lists the canonical tokens in pipeline order, from initial
// stage to the two terminal branches.
var PipelineStages = []string{
	StageNewLead,
	StageVerifiedLead,
	StageQualified,
	StageSiteSurveyScheduled,
	StageProposalSent,
	StageNegotiation,
	StageClosedWon,
	StageClosedLost,
}

// Three display labels contain characters a token cannot carry, so they get
// explicit table entries; every other label converts by space<->underscore.
// Adding a ninth stage with an irregular label is a one-line table edit.
var labelToToken = map[string]string{
	"Closed Won / Project": StageClosedWon,
	"Negotiation/Finance":  StageNegotiation,
	"Qualified (Vetting)":  StageQualified,
}

var tokenToLabel = map[string]string{
	StageClosedWon:   "Closed Won / Project",
	StageNegotiation: "Negotiation/Finance",
	StageQualified:   "Qualified (Vetting)",
}

var knownStages = func() map[string]struct{} {
	m := make(map[string]struct{}, len(PipelineStages))
	for _, s := range PipelineStages {
		m[s] = struct{}{}
	}
	return m
}()

// IsKnownStage reports whether token is a member of the stage enumeration.
func IsKnownStage(token string) bool {
	_, ok := knownStages[token]
	return ok
}

// NormalizeStage converts a display label to its canonical token.
func NormalizeStage(label string) string {
	if token, ok := labelToToken[label]; ok {
		return token
	}
	return strings.ReplaceAll(label, " ", "_")
}

// DenormalizeStage converts a canonical token to its display label. Unknown
// or empty tokens fall back to the first stage's label; this is a deliberate
// safe default, not an error.
func DenormalizeStage(token string) string {
	if token == "" || !IsKnownStage(token) {
		return "New Lead"
	}
	if label, ok := tokenToLabel[token]; ok {
		return label
	}
	return strings.ReplaceAll(token, "_", " ")
}
