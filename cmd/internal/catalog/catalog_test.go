package catalog

import "testing"

func TestCatalogShape(t *testing.T) {
	t.Parallel()

	if got := len(Maps()); got != 12 {
		t.Fatalf("maps=%d want=12", got)
	}
	if got := len(Roles()); got != 4 {
		t.Fatalf("roles=%d want=4", got)
	}
	if got := len(RolePreferences()); got != 5 {
		t.Fatalf("role preferences=%d want=5", got)
	}
	if got := len(Modes()); got != 7 {
		t.Fatalf("modes=%d want=7", got)
	}
	if got := len(Ranks()); got != 10 {
		t.Fatalf("ranks=%d want=10", got)
	}
}

func TestCatalogValuesUnique(t *testing.T) {
	t.Parallel()

	for _, set := range [][]Entry{Modes(), Ranks(), Maps(), RolePreferences()} {
		seen := map[string]struct{}{}
		for _, e := range set {
			if e.Value == "" || e.Label == "" {
				t.Fatalf("entry missing value or label: %+v", e)
			}
			if _, dup := seen[e.Value]; dup {
				t.Fatalf("duplicate value %q", e.Value)
			}
			seen[e.Value] = struct{}{}
		}
	}
}

func TestRolePreferencesExtendRoles(t *testing.T) {
	t.Parallel()

	prefs := RolePreferences()
	if prefs[len(prefs)-1].Value != "any" {
		t.Fatalf("last preference=%q want=any", prefs[len(prefs)-1].Value)
	}
	if _, ok := Find(Roles(), "any"); ok {
		t.Fatalf("assignable roles must not include the any wildcard")
	}
}

func TestFindAndValues(t *testing.T) {
	t.Parallel()

	e, ok := Find(Maps(), "haven")
	if !ok || e.Label != "Haven" {
		t.Fatalf("find haven: entry=%+v ok=%v", e, ok)
	}
	if _, ok := Find(Maps(), "venice"); ok {
		t.Fatalf("find matched a value outside the catalog")
	}

	vals := Values(Roles())
	want := []string{"duelist", "initiator", "controller", "sentinel"}
	if len(vals) != len(want) {
		t.Fatalf("values=%v want=%v", vals, want)
	}
	for i := range want {
		if vals[i] != want[i] {
			t.Fatalf("values=%v want=%v (order preserved)", vals, want)
		}
	}
}
