package catalog

import "testing"

func TestLoadParsesEmbeddedData(t *testing.T) {
	c, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	states := c.States()
	if len(states) != 36 {
		t.Errorf("len(States()) = %d, want 36", len(states))
	}
	for i := 1; i < len(states); i++ {
		if states[i-1] >= states[i] {
			t.Fatalf("states not sorted at %d: %q >= %q", i, states[i-1], states[i])
		}
	}
}

func TestDistrictsKnownState(t *testing.T) {
	c, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	districts := c.Districts("Maharashtra")
	if len(districts) == 0 {
		t.Fatal("Maharashtra should have districts")
	}
	found := false
	for _, d := range districts {
		if d == "Pune" {
			found = true
		}
	}
	if !found {
		t.Error("Pune missing from Maharashtra districts")
	}
}

func TestDistrictsUnknownStateIsEmptyNotNil(t *testing.T) {
	c, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	districts := c.Districts("Atlantis")
	if districts == nil {
		t.Fatal("unknown state must return an empty slice, not nil")
	}
	if len(districts) != 0 {
		t.Errorf("unknown state returned %d districts", len(districts))
	}
}

func TestFormSchemas(t *testing.T) {
	c, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	for _, formType := range []string{"rooftop", "pump"} {
		fields := c.FormSchema(formType)
		if len(fields) != 7 {
			t.Errorf("FormSchema(%q) has %d fields, want 7", formType, len(fields))
		}
		for _, f := range fields {
			if f.ID == "" || f.Name == "" || f.Type == "" {
				t.Errorf("%s field incomplete: %+v", formType, f)
			}
		}
	}

	if got := c.FormSchema("windmill"); len(got) != 0 || got == nil {
		t.Errorf("unknown form type should yield empty non-nil slice, got %v", got)
	}
}
