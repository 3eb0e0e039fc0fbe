package engine

import (
	"sync"
	"testing"
)

func TestRNG_Deterministic(t *testing.T) {
	rng1 := NewRNG(42)
	rng2 := NewRNG(42)

	for i := 0; i < 20; i++ {
		a := rng1.Intn(6)
		b := rng2.Intn(6)
		if a != b {
			t.Fatalf("draw %d: got %d and %d from same seed", i, a, b)
		}
	}
}

func TestRNG_Intn_Range(t *testing.T) {
	rng := NewRNG(99)

	for i := 0; i < 1000; i++ {
		r := rng.Intn(6)
		if r < 0 || r > 5 {
			t.Fatalf("draw out of range [0,5]: got %d", r)
		}
	}
}

func TestRNG_ZeroSeedIsRandomized(t *testing.T) {
	if NewRNG(0).Seed() == 0 {
		t.Error("zero seed should be replaced with a time-based seed")
	}
	if NewRNG(7).Seed() != 7 {
		t.Error("explicit seed should be kept")
	}
}

func TestRNG_Pick_Boundaries(t *testing.T) {
	rng := NewRNG(3)
	cum := []int{1, 4, 10}

	for i := 0; i < 500; i++ {
		idx := rng.Pick(cum)
		if idx < 0 || idx > 2 {
			t.Fatalf("Pick out of range: %d", idx)
		}
	}
	if got := rng.Pick(nil); got != 0 {
		t.Errorf("Pick(nil) = %d, want 0", got)
	}
}

func TestRNG_Pick_Deterministic(t *testing.T) {
	rng1 := NewRNG(42)
	rng2 := NewRNG(42)
	cum := []int{70, 90, 100}

	for i := 0; i < 20; i++ {
		a := rng1.Pick(cum)
		b := rng2.Pick(cum)
		if a != b {
			t.Fatalf("selection %d: got %d and %d from same seed", i, a, b)
		}
	}
}

func TestRNG_Pick_Distribution(t *testing.T) {
	rng := NewRNG(12345)
	cum := []int{70, 90, 100} // weights 70, 20, 10
	counts := [3]int{}

	const trials = 10000
	for i := 0; i < trials; i++ {
		idx := rng.Pick(cum)
		if idx < 0 || idx > 2 {
			t.Fatalf("index out of range: %d", idx)
		}
		counts[idx]++
	}

	// With 10k trials, expect roughly 70%/20%/10% ± some margin.
	if counts[0] < 6000 || counts[0] > 8000 {
		t.Errorf("expected ~7000 for weight 70, got %d", counts[0])
	}
	if counts[1] < 1000 || counts[1] > 3000 {
		t.Errorf("expected ~2000 for weight 20, got %d", counts[1])
	}
	if counts[2] < 200 || counts[2] > 1800 {
		t.Errorf("expected ~1000 for weight 10, got %d", counts[2])
	}
}

func TestRNG_Pick_UniformWithinEqualWeights(t *testing.T) {
	rng := NewRNG(2024)
	cum := []int{1, 2, 3, 4}
	counts := make([]int, 4)

	const trials = 8000
	for i := 0; i < trials; i++ {
		counts[rng.Pick(cum)]++
	}
	for i, c := range counts {
		if c < 1600 || c > 2400 {
			t.Errorf("option %d drawn %d times, want ~2000", i, c)
		}
	}
}

func TestRNG_Pick_SingleOption(t *testing.T) {
	rng := NewRNG(1)
	for i := 0; i < 10; i++ {
		if got := rng.Pick([]int{5}); got != 0 {
			t.Fatalf("single option should always be 0, got %d", got)
		}
	}
}

func TestRNG_PositionAndConcurrency(t *testing.T) {
	rng := NewRNG(5)
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				rng.Intn(10)
			}
		}()
	}
	wg.Wait()
	if got := rng.Position(); got != 800 {
		t.Errorf("Position() = %d, want 800", got)
	}
}
