package domain

import (
	"strconv"
	"strings"
)

// Score tiers.
const (
	ScoreStatusHot  = "Hot"
	ScoreStatusWarm = "Warm"
	ScoreStatusCold = "Cold"
)

// Scoring weights. The score is always recomputed whole from the current
// attributes, never patched incrementally, to avoid drift.
const (
	baseScore          = 30
	weightOTPVerified  = 25
	weightFullContact  = 15
	weightHighBill     = 20
	weightHomeowner    = 10
	weightHighEnergy   = 20
	billThreshold      = 5000
	energyThreshold    = 15000
	maxScore           = 100
)

// ScoreInput carries the lead attributes the scoring heuristic reads.
type ScoreInput struct {
	OTPVerified  bool
	Name         string
	Email        string
	Phone        string
	CustomFields map[string]string
}

// Score computes the lead-quality heuristic: a base of 30 plus fixed weights
// for each satisfied predicate, clamped to 100. Full contact info only counts
// when name, email and phone are all present; there is no partial credit.
func Score(in ScoreInput) int {
	score := baseScore

	if in.OTPVerified {
		score += weightOTPVerified
	}
	if in.Name != "" && in.Email != "" && in.Phone != "" {
		score += weightFullContact
	}

	if bill, ok := leadingInt(in.CustomFields["bill"]); ok && bill > billThreshold {
		score += weightHighBill
	}
	if in.CustomFields["propertyStatus"] == "Homeowner" {
		score += weightHomeowner
	}
	if cost, ok := leadingInt(in.CustomFields["energyCost"]); ok && cost > energyThreshold {
		score += weightHighEnergy
	}

	if score > maxScore {
		score = maxScore
	}
	return score
}

// StatusFor maps a score to its qualitative tier. The tiers partition the
// whole integer range: >=80 Hot, >=50 Warm, the rest Cold.
func StatusFor(score int) string {
	switch {
	case score >= 80:
		return ScoreStatusHot
	case score >= 50:
		return ScoreStatusWarm
	default:
		return ScoreStatusCold
	}
}

// leadingInt parses the leading integer prefix of a string, mirroring how the
// form values arrive ("6000", "6000 INR"). Returns false when no digits lead.
func leadingInt(value string) (int, bool) {
	trimmed := strings.TrimSpace(value)
	end := 0
	for end < len(trimmed) && trimmed[end] >= '0' && trimmed[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(trimmed[:end])
	if err != nil {
		return 0, false
	}
	return n, true
}
