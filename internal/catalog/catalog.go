// Package catalog serves the static location and funnel form-schema data the
// public calculator consumes, plus the admin settings store.
package catalog

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sort"
)

//go:embed data/locations.json
var locationsJSON []byte

//go:embed data/forms.json
var formsJSON []byte

// FormField describes one input in a funnel form schema. The JSON shape is
// part of the public API contract with the calculator frontend.
type FormField struct {
	ID          string   `json:"id"`
	Type        string   `json:"type"`
	Name        string   `json:"name"`
	Label       string   `json:"label"`
	Required    bool     `json:"required"`
	Options     []string `json:"options,omitempty"`
	Placeholder string   `json:"placeholder,omitempty"`
}

// Catalog holds the parsed static data.
type Catalog struct {
	districts map[string][]string
	states    []string
	forms     map[string][]FormField
}

func Load() (*Catalog, error) {
	c := &Catalog{}
	if err := json.Unmarshal(locationsJSON, &c.districts); err != nil {
		return nil, fmt.Errorf("parse locations data: %w", err)
	}
	if err := json.Unmarshal(formsJSON, &c.forms); err != nil {
		return nil, fmt.Errorf("parse forms data: %w", err)
	}

	c.states = make([]string, 0, len(c.districts))
	for state := range c.districts {
		c.states = append(c.states, state)
	}
	sort.Strings(c.states)
	return c, nil
}

// States lists all states and union territories, sorted.
func (c *Catalog) States() []string {
	return c.states
}

// Districts returns the districts of a state, or an empty slice for unknown
// states. Never nil, so the handler serializes a JSON array either way.
func (c *Catalog) Districts(state string) []string {
	if districts, ok := c.districts[state]; ok {
		return districts
	}
	return []string{}
}

// FormSchema returns the field list for a form type, empty for unknown types.
func (c *Catalog) FormSchema(formType string) []FormField {
	if fields, ok := c.forms[formType]; ok {
		return fields
	}
	return []FormField{}
}
