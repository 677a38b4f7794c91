// Package importer ingests CSV lead batches asynchronously. The upload
// endpoint stores the raw file as an import job and enqueues a task; the
// worker parses, validates and creates leads row by row.
package importer

import (
	"encoding/csv"
	"fmt"
	"strings"

	"solar_crm_backend/internal/leads/domain"
)

var requiredHeaders = []string{"name", "email", "productType"}

// standardFields are CSV columns mapped to lead columns; anything else in
// the header lands in custom_fields.
var standardFields = map[string]struct{}{
	"name":          {},
	"email":         {},
	"phone":         {},
	"productType":   {},
	"pipelineStage": {},
	"source":        {},
}

// LeadRow is one validated CSV row ready for creation.
type LeadRow struct {
	Line          int
	Name          string
	Email         string
	Phone         string
	ProductType   string
	PipelineStage string
	Source        string
	CustomFields  map[string]string
}

// ParseCSV validates the batch. A malformed file or missing required header
// fails the whole import; a bad row only produces an entry in rowErrors,
// keyed by its 1-based line number.
func ParseCSV(raw []byte) (rows []LeadRow, rowErrors []string, err error) {
	reader := csv.NewReader(strings.NewReader(string(raw)))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("malformed CSV: %w", err)
	}
	if len(records) <= 1 {
		return nil, nil, fmt.Errorf("CSV file is empty or contains only a header")
	}

	headers := make([]string, len(records[0]))
	for i, h := range records[0] {
		headers[i] = strings.TrimSpace(h)
	}
	for _, required := range requiredHeaders {
		if !contains(headers, required) {
			return nil, nil, fmt.Errorf("missing required CSV column: %s", required)
		}
	}

	for i, record := range records[1:] {
		line := i + 2
		if isBlank(record) {
			continue
		}

		data := map[string]string{}
		for j, header := range headers {
			if j < len(record) {
				data[header] = strings.TrimSpace(record[j])
			} else {
				data[header] = ""
			}
		}

		row, rowErr := buildRow(line, headers, data)
		if rowErr != nil {
			rowErrors = append(rowErrors, fmt.Sprintf("Row %d: %s", line, rowErr))
			continue
		}
		rows = append(rows, row)
	}
	return rows, rowErrors, nil
}

func buildRow(line int, headers []string, data map[string]string) (LeadRow, error) {
	if data["name"] == "" || data["email"] == "" || data["productType"] == "" {
		return LeadRow{}, fmt.Errorf("missing required fields (name, email, productType)")
	}
	productType := data["productType"]
	if productType != "rooftop" && productType != "pump" {
		return LeadRow{}, fmt.Errorf("productType must be 'rooftop' or 'pump'")
	}

	stage := domain.StageNewLead
	if data["pipelineStage"] != "" {
		stage = domain.NormalizeStage(data["pipelineStage"])
		if !domain.IsKnownStage(stage) {
			return LeadRow{}, fmt.Errorf("unknown pipelineStage %q", data["pipelineStage"])
		}
	}

	source := data["source"]
	if source == "" {
		source = "CSV Import"
	}

	customFields := map[string]string{}
	for _, header := range headers {
		if _, standard := standardFields[header]; standard || header == "" {
			continue
		}
		customFields[header] = data[header]
	}

	return LeadRow{
		Line:          line,
		Name:          data["name"],
		Email:         data["email"],
		Phone:         data["phone"],
		ProductType:   productType,
		PipelineStage: stage,
		Source:        source,
		CustomFields:  customFields,
	}, nil
}

func contains(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}

func isBlank(record []string) bool {
	for _, field := range record {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}
