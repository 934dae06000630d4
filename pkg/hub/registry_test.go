package hub

import (
	"strings"
	"testing"
)

func TestParticipantValidate(t *testing.T) {
	tests := []struct {
		p     Participant
		valid bool
	}{
		{Participant{Name: "Alice", Role: RoleStudent}, true},
		{Participant{Name: "  Bob ", Role: RoleTeacher}, true},
		{Participant{Name: "", Role: RoleStudent}, false},
		{Participant{Name: "   ", Role: RoleStudent}, false},
		{Participant{Name: "Eve", Role: "admin"}, false},
		{Participant{Name: "Eve"}, false},
		{Participant{Name: strings.Repeat("é", 64), Role: RoleStudent}, true},
		{Participant{Name: strings.Repeat("é", 65), Role: RoleStudent}, false},
	}

	for _, test := range tests {
		p := test.p
		err := p.Validate()

		if test.valid && err != nil {
			t.Errorf("%q: unexpected error: %v", test.p.Name, err)
		} else if !test.valid && err == nil {
			t.Errorf("%q: invalid participant was accepted", test.p.Name)
		}
	}

	p := Participant{Name: "  Bob ", Role: RoleTeacher}
	p.Validate()
	if p.Name != "Bob" {
		t.Errorf("name = %q, want %q", p.Name, "Bob")
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()

	r.Join(Participant{Id: "s1", Name: "Teacher", Role: RoleTeacher})
	r.Join(Participant{Id: "s2", Name: "Alice", Role: RoleStudent})
	r.Join(Participant{Id: "s3", Name: "Bob", Role: RoleStudent})

	if n := r.EligibleVoters(); n != 2 {
		t.Fatalf("eligible voters = %d, want 2", n)
	}

	// Joining again replaces the previous entry.
	r.Join(Participant{Id: "s2", Name: "Alice B.", Role: RoleStudent})

	participants := r.List()
	if len(participants) != 3 {
		t.Fatalf("%d participants, want 3", len(participants))
	}

	if p := participants[2]; p.Id != "s2" || p.Name != "Alice B." {
		t.Errorf("last participant = %+v, want s2 Alice B.", p)
	}

	if p, found := r.Get("s3"); !found || p.Name != "Bob" {
		t.Errorf("Get(s3) = %+v, %v", p, found)
	}

	if !r.Leave("s3") {
		t.Errorf("cannot remove s3")
	}

	if r.Leave("s3") {
		t.Errorf("s3 removed twice")
	}

	if _, found := r.Get("s3"); found {
		t.Errorf("s3 still registered")
	}

	if n := r.EligibleVoters(); n != 1 {
		t.Errorf("eligible voters = %d, want 1", n)
	}
}

func TestRegistryListIsolation(t *testing.T) {
	r := NewRegistry()
	r.Join(Participant{Id: "s1", Name: "Alice", Role: RoleStudent})

	participants := r.List()
	participants[0].Name = "Mallory"

	if p, _ := r.Get("s1"); p.Name != "Alice" {
		t.Errorf("registry modified through List: %q", p.Name)
	}
}
