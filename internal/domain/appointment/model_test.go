package appointment

import "testing"

func TestCanTransitionTo(t *testing.T) {
	tests := []struct {
		from, to string
		want     bool
	}{
		{StatusBooked, StatusCompleted, true},
		{StatusBooked, StatusCancelled, true},
		{StatusBooked, StatusBooked, false},
		{StatusCompleted, StatusCancelled, false},
		{StatusCompleted, StatusBooked, false},
		{StatusCancelled, StatusBooked, false},
		{StatusCancelled, StatusCompleted, false},
	}
	for _, tt := range tests {
		a := &Appointment{Status: tt.from}
		if got := a.CanTransitionTo(tt.to); got != tt.want {
			t.Errorf("CanTransitionTo(%s -> %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}
