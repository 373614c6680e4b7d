package category

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestRegistry_BuiltinOrder(t *testing.T) {
	reg := NewRegistry()
	ps := reg.Patterns()
	if len(ps) != 14 {
		t.Fatalf("builtin patterns=%d want 14", len(ps))
	}
	if !ps[0].Category.Is(Architecture) || !ps[13].Category.Is(Dependencies) {
		t.Fatalf("unexpected order: first=%s last=%s", ps[0].Category, ps[13].Category)
	}
	weights := map[Known]float64{Critical: 1.5, Security: 1.2, Documentation: 0.7, Performance: 1.1}
	for _, p := range ps {
		k, _ := p.Category.Known()
		if w, ok := weights[k]; ok && p.Weight != w {
			t.Fatalf("%s weight=%v want %v", p.Category, p.Weight, w)
		}
	}
}

func TestRegistry_AddRemoveCustomRule(t *testing.T) {
	reg := NewRegistry()
	if err := reg.AddCustomRule("billing", Named("Billing"), []string{"Invoice"}, []string{`charge(?:s|back)?`}, 1.5); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := reg.AddCustomRule("ops", Of(Monitoring), []string{"pager"}, nil, 0); err != nil {
		t.Fatalf("add: %v", err)
	}
	rules := reg.CustomRules()
	if len(rules) != 2 || rules[0].Name != "billing" || rules[1].Name != "ops" {
		t.Fatalf("unexpected rules: %+v", rules)
	}
	if rules[0].Pattern.Keywords[0] != "invoice" {
		t.Fatalf("keywords should be lower-cased, got %q", rules[0].Pattern.Keywords[0])
	}
	if rules[1].Pattern.Weight != 1.0 {
		t.Fatalf("zero weight should default to 1.0, got %v", rules[1].Pattern.Weight)
	}
	if len(reg.Patterns()) != 16 {
		t.Fatalf("patterns=%d want 16", len(reg.Patterns()))
	}

	d := NewDetector(reg)
	cat, _ := d.DetectCategory("Every INVOICE triggers chargebacks", "")
	if cat.Label() != "Billing" {
		t.Fatalf("category=%s want Billing", cat)
	}

	if !reg.RemoveCustomRule("billing") {
		t.Fatal("expected removal")
	}
	if reg.RemoveCustomRule("billing") {
		t.Fatal("second removal should report false")
	}
	cat, _ = d.DetectCategory("Every INVOICE triggers chargebacks", "")
	if cat.Label() == "Billing" {
		t.Fatal("removed rule still scoring")
	}
}

func TestRegistry_RejectsBadRules(t *testing.T) {
	reg := NewRegistry()
	if err := reg.AddCustomRule("x", Named("X"), []string{"a"}, nil, 1); err != nil {
		t.Fatal(err)
	}
	cases := []struct {
		name     string
		ruleName string
		keywords []string
		patterns []string
		weight   float64
		want     error
	}{
		{"duplicate", "x", []string{"b"}, nil, 1, ErrDuplicateRule},
		{"empty name", " ", []string{"b"}, nil, 1, ErrInvalidRule},
		{"bad regex", "y", nil, []string{"("}, 1, ErrInvalidRule},
		{"negative weight", "z", []string{"b"}, nil, -1, ErrInvalidRule},
		{"nothing to match", "w", nil, nil, 1, ErrInvalidRule},
	}
	for _, tc := range cases {
		err := reg.AddCustomRule(tc.ruleName, Named("Y"), tc.keywords, tc.patterns, tc.weight)
		if !errors.Is(err, tc.want) {
			t.Fatalf("%s: err=%v want %v", tc.name, err, tc.want)
		}
	}
}

func TestCategory_ParseAndLabels(t *testing.T) {
	cases := []struct {
		in   string
		want Known
	}{
		{"🔐 Security", Security},
		{"security", Security},
		{"API", API},
		{"🏗 Architecture", Architecture},
		{"Custom", Custom},
		{"", Custom},
	}
	for _, tc := range cases {
		got := Parse(tc.in)
		if !got.Is(tc.want) {
			t.Fatalf("Parse(%q)=%s want %s", tc.in, got, tc.want.Label())
		}
	}
	free := Parse("Cloud Security")
	if _, ok := free.Known(); ok || !free.IsCustom() || free.Label() != "Cloud Security" {
		t.Fatalf("free-form parse wrong: %+v", free)
	}
	if Of(Security).Label() != "🔐 Security" || Of(Security).Name() != "Security" {
		t.Fatalf("label=%q", Of(Security).Label())
	}
	if len(All()) != 15 {
		t.Fatalf("All()=%d want 15", len(All()))
	}
}

func TestCategory_JSONRoundTrip(t *testing.T) {
	in := []Category{Of(Testing), Named("Billing")}
	b, err := json.Marshal(in)
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `["🧪 Testing","Billing"]` {
		t.Fatalf("json=%s", b)
	}
	var out []Category
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatal(err)
	}
	if out[0] != in[0] || out[1] != in[1] {
		t.Fatalf("round trip mismatch: %+v", out)
	}
}
