package identity

import (
	"testing"
	"time"
)

func TestAgeAt(t *testing.T) {
	dob := time.Date(1990, 6, 15, 0, 0, 0, 0, time.UTC)
	p := &Profile{DateOfBirth: &dob}

	tests := []struct {
		name string
		at   time.Time
		want int
	}{
		{"day before birthday", time.Date(2024, 6, 14, 0, 0, 0, 0, time.UTC), 33},
		{"on birthday", time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC), 34},
		{"day after birthday", time.Date(2024, 6, 16, 0, 0, 0, 0, time.UTC), 34},
		{"earlier month", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), 33},
		{"later month", time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC), 34},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := p.AgeAt(tt.at); got != tt.want {
				t.Errorf("AgeAt() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestAgeAtUnknownDOB(t *testing.T) {
	p := &Profile{}
	if got := p.AgeAt(time.Now()); got != 0 {
		t.Errorf("expected 0 for unknown date of birth, got %d", got)
	}
}

func TestAgeAtFutureDOB(t *testing.T) {
	dob := time.Date(2100, 1, 1, 0, 0, 0, 0, time.UTC)
	p := &Profile{DateOfBirth: &dob}
	if got := p.AgeAt(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)); got != 0 {
		t.Errorf("expected 0 for future date of birth, got %d", got)
	}
}

func TestRoleValid(t *testing.T) {
	for _, r := range []Role{RolePatient, RoleDoctor, RoleAdmin} {
		if !r.Valid() {
			t.Errorf("expected role %q to be valid", r)
		}
	}
	if Role("nurse").Valid() {
		t.Error("expected unknown role to be invalid")
	}
	if Role("").Valid() {
		t.Error("expected empty role to be invalid")
	}
}
