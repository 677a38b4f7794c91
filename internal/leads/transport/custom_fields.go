package transport

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// CustomFields is the open-ended attribute bag attached to a lead. Funnel
// forms send a mix of strings and numbers; everything is stored as a string
// and scoring re-parses numeric values where it needs them.
type CustomFields map[string]string

func (f *CustomFields) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	out := make(map[string]string, len(raw))
	for key, value := range raw {
		var s string
		if err := json.Unmarshal(value, &s); err == nil {
			out[key] = s
			continue
		}
		var n json.Number
		if err := json.Unmarshal(value, &n); err == nil {
			out[key] = n.String()
			continue
		}
		var b bool
		if err := json.Unmarshal(value, &b); err == nil {
			out[key] = strconv.FormatBool(b)
			continue
		}
		if string(value) == "null" {
			continue
		}
		return fmt.Errorf("custom field %q: unsupported value %s", key, value)
	}
	*f = out
	return nil
}
