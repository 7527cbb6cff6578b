package server

import "testing"

func TestKey(t *testing.T) {
	t.Parallel()

	if got := Key("31.186.250.67", 1235); got != "31.186.250.67:1235" {
		t.Fatalf("unexpected key %q", got)
	}
}

func TestOccupancy(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		current int
		max     int
		want    float64
	}{
		{"half full", 16, 32, 0.5},
		{"empty", 0, 32, 0},
		{"no capacity reported", 5, 0, 0},
		{"overfull clamps to one", 40, 32, 1},
		{"negative clamps to zero", -3, 32, 0},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			item := Item{CurrentPlayers: tc.current, MaxPlayers: tc.max}
			if got := item.Occupancy(); got != tc.want {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
		})
	}
}
