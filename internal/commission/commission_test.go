package commission

import "testing"

func TestCalc(t *testing.T) {
	tests := []struct {
		name         string
		clientsCount int
		amount       float64
		want         float64
	}{
		{"zero clients lower tier", 0, 1000, 50},
		{"boundary ten clients lower tier", 10, 1000, 50},
		{"eleven clients upper tier", 11, 1000, 100},
		{"large count upper tier", 500, 1500, 150},
		{"rounding to cents", 3, 333.33, 16.67},
		{"whole amount", 7, 420, 21},
		{"zero amount", 5, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Calc(tt.clientsCount, tt.amount)
			if got != tt.want {
				t.Errorf("Calc(%d, %v) = %v, want %v", tt.clientsCount, tt.amount, got, tt.want)
			}
		})
	}
}

func TestTiersOrdering(t *testing.T) {
	// The last tier must be unbounded so every clients count maps to a rate.
	if Tiers[len(Tiers)-1].MaxClients >= 0 {
		t.Fatal("last tier must be unbounded")
	}
	for i := 1; i < len(Tiers)-1; i++ {
		if Tiers[i].MaxClients <= Tiers[i-1].MaxClients {
			t.Fatalf("tiers not in ascending order at index %d", i)
		}
	}
}
