package followup

import "testing"

func TestConsecutiveAbsences(t *testing.T) {
	tests := []struct {
		name     string
		presence []bool
		want     int
	}{
		{name: "empty", presence: nil, want: 0},
		{name: "present this week", presence: []bool{true}, want: 0},
		{name: "present this week, absent before", presence: []bool{true, false, false, false}, want: 0},
		{name: "stops at first presence", presence: []bool{false, false, true, false}, want: 2},
		{name: "one absence", presence: []bool{false, true, true}, want: 1},
		{name: "all absent", presence: []bool{false, false, false}, want: 3},
		{name: "all absent over 12 weeks", presence: make([]bool, 12), want: 12},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ConsecutiveAbsences(tt.presence); got != tt.want {
				t.Errorf("ConsecutiveAbsences() = %d, want %d", got, tt.want)
			}
		})
	}
}
