package economy

import "testing"

func TestPointValue(t *testing.T) {
	cases := map[Rarity]int{
		Common:    1,
		Uncommon:  2,
		Rare:      4,
		Legendary: 8,
		"mythic":  0,
	}
	for r, want := range cases {
		if got := PointValue(r); got != want {
			t.Errorf("PointValue(%q) = %d, want %d", r, got, want)
		}
	}
}

func TestDriftLevelZeroWhenNothingHeld(t *testing.T) {
	for _, traded := range []int{0, 1, 5, 100} {
		if got := DriftLevel(0, traded); got != 0 {
			t.Errorf("DriftLevel(0, %d) = %d, want 0", traded, got)
		}
	}
}

func TestDriftLevelThresholds(t *testing.T) {
	cases := []struct {
		held, traded, want int
	}{
		{10, 0, 0},
		{10, 5, 0}, // exactly 0.50 is not above the threshold
		{10, 6, 1},
		{10, 7, 1}, // exactly 0.70
		{10, 8, 2},
		{20, 17, 2}, // exactly 0.85
		{20, 18, 3},
		{8, 8, 3},
	}
	for _, c := range cases {
		if got := DriftLevel(c.held, c.traded); got != c.want {
			t.Errorf("DriftLevel(%d, %d) = %d, want %d", c.held, c.traded, got, c.want)
		}
	}
}

func TestDriftLevelMonotonic(t *testing.T) {
	for held := 1; held <= 40; held++ {
		prev := -1
		for traded := 0; traded <= held; traded++ {
			level := DriftLevel(held, traded)
			if level < prev {
				t.Fatalf("drift decreased at held=%d traded=%d: %d < %d", held, traded, level, prev)
			}
			if level < 0 || level > MaxDriftLevel {
				t.Fatalf("drift out of range: %d", level)
			}
			prev = level
		}
	}
}

func TestPickRarityDistribution(t *testing.T) {
	counts := map[Rarity]int{}
	const steps = 1000
	for i := 0; i < steps; i++ {
		counts[PickRarity(float64(i)/steps)]++
	}
	want := map[Rarity]int{Legendary: 50, Rare: 150, Uncommon: 300, Common: 500}
	for r, n := range want {
		if counts[r] != n {
			t.Errorf("%s: got %d of %d rolls, want %d", r, counts[r], steps, n)
		}
	}
}
