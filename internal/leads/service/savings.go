package service

import (
	"fmt"
	"strconv"
	"strings"

	"solar_crm_backend/internal/leads/transport"
)

// savingsResults builds the figures shown to a funnel visitor right after
// OTP verification. Rooftop sizing assumes 750 INR of monthly bill per kW;
// the residential subsidy is capped at 78,000 INR. Pump estimates follow the
// PM-KUSUM scheme's flat 60% subsidy.
func savingsResults(productType string, customFields map[string]string) map[string]string {
	if productType == string(transport.ProductTypeRooftop) {
		bill := leadingInt(customFields["bill"])
		systemKW := float64(bill) / 750
		subsidy := min(78000, int64(systemKW*22000))
		return map[string]string{
			"System Size (kW)":           fmt.Sprintf("%.1f kW", systemKW),
			"Total Subsidy Estimate (₹)": "₹ " + formatINR(subsidy),
			"Annual Savings (₹)":         "₹ " + formatINR(int64(bill)*12),
			"Payback Period":             "~4.5 Years",
		}
	}
	energyCost := leadingInt(customFields["energyCost"])
	return map[string]string{
		"Estimated Annual Diesel Savings (₹)": "₹ " + formatINR(int64(energyCost)*4),
		"PM-KUSUM Subsidy Estimate":           "60%",
		"Payback Period":                      "~1.9 Years",
	}
}

// formatINR renders n with Indian digit grouping: the last three digits form
// one group, every pair after that gets its own (12,34,567).
func formatINR(n int64) string {
	sign := ""
	if n < 0 {
		sign = "-"
		n = -n
	}
	s := strconv.FormatInt(n, 10)
	if len(s) <= 3 {
		return sign + s
	}

	head := s[:len(s)-3]
	tail := s[len(s)-3:]

	var groups []string
	for len(head) > 2 {
		groups = append([]string{head[len(head)-2:]}, groups...)
		head = head[:len(head)-2]
	}
	if head != "" {
		groups = append([]string{head}, groups...)
	}
	return sign + strings.Join(groups, ",") + "," + tail
}

// leadingInt parses the leading digit run of s, tolerating suffixes like
// "6000 INR" the funnel forms occasionally produce.
func leadingInt(s string) int {
	s = strings.TrimSpace(s)
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0
	}
	return n
}
