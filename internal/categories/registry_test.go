package categories

import (
	"reflect"
	"testing"
)

func mustDefault(t *testing.T) *Registry {
	t.Helper()
	reg, err := Default()
	if err != nil {
		t.Fatalf("Default(): %v", err)
	}
	return reg
}

func TestResolveSingleValuedAxes(t *testing.T) {
	reg := mustDefault(t)

	cases := []struct {
		name  string
		axis  Axis
		label string
		want  int64
	}{
		{name: "exact service", axis: AxisService, label: "WordPress Development", want: 3},
		{name: "service alias", axis: AxisService, label: "Website Development", want: 1},
		{name: "case and spaces", axis: AxisService, label: "  ai   SOLUTIONS ", want: 17},
		{name: "unknown service", axis: AxisService, label: "Quantum Consulting", want: 16},
		{name: "blank service", axis: AxisService, label: "", want: 16},
		{name: "industry alias", axis: AxisIndustry, label: "E-commerce", want: 1},
		{name: "unknown industry", axis: AxisIndustry, label: "Space Tourism", want: 20},
		{name: "contact call", axis: AxisContact, label: "call", want: 1},
		{name: "contact unknown", axis: AxisContact, label: "Carrier pigeon", want: 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := reg.Resolve(tc.axis, tc.label); got != tc.want {
				t.Fatalf("Resolve(%s, %q) = %d, want %d", tc.axis, tc.label, got, tc.want)
			}
		})
	}
}

func TestResolveSetDropsUnknownAndDeduplicates(t *testing.T) {
	reg := mustDefault(t)

	got := reg.ResolveSet(AxisCheckbox, []string{
		"WANT MORE BUSINESS LEADS?",
		"Need a new website for your business?",
		"Something completely different",
		"want more business leads?",
		"WANT TO TAKE YOUR BRAND TO LARGER AUDIENCE?",
	})
	want := []int64{1, 3, 5}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ResolveSet() = %v, want %v", got, want)
	}

	if empty := reg.ResolveSet(AxisCheckbox, []string{"nothing matches"}); len(empty) != 0 {
		t.Fatalf("expected empty set, got %v", empty)
	}
}

func TestLoadRejectsInvalidVocabularies(t *testing.T) {
	cases := map[string]string{
		"missing fallback": `
service: {labels: {1: [A]}}
industry: {fallback: 20, labels: {}}
contact: {fallback: 0, labels: {}}
checkbox: {labels: {}}
`,
		"checkbox fallback": `
service: {fallback: 16, labels: {}}
industry: {fallback: 20, labels: {}}
contact: {fallback: 0, labels: {}}
checkbox: {fallback: 1, labels: {}}
`,
		"conflicting alias": `
service: {fallback: 16, labels: {1: [Web], 2: [web]}}
industry: {fallback: 20, labels: {}}
contact: {fallback: 0, labels: {}}
checkbox: {labels: {}}
`,
		"missing axis": `
service: {fallback: 16, labels: {}}
`,
	}

	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Load([]byte(doc)); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestLabelReturnsFirstSpelling(t *testing.T) {
	reg := mustDefault(t)
	if got := reg.Label(AxisService, 7); got != "Search Engine Optimisation (SEO)" {
		t.Fatalf("service 7 label = %q", got)
	}
	if got := reg.Label(AxisIndustry, 999); got != "" {
		t.Fatalf("unknown id label = %q", got)
	}
}
