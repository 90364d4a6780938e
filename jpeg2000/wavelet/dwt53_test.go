package wavelet

import (
	"math/rand"
	"slices"
	"testing"
)

func TestForward53_1DKnownValues(t *testing.T) {
	data := []int32{10, 20, 30, 40}
	Forward53_1D(data)
	// H = [20-(10+30)/2, 40-(30+30)/2] = [0, 10]
	// L = [10+(0+0+2)/4, 30+(0+10+2)/4] = [10, 33]
	want := []int32{10, 33, 0, 10}
	if !slices.Equal(data, want) {
		t.Errorf("got %v, want %v", data, want)
	}
}

func TestRoundTrip1D(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	for n := 1; n <= 40; n++ {
		orig := make([]int32, n)
		for i := range orig {
			orig[i] = rng.Int31n(65536) - 32768
		}
		data := slices.Clone(orig)
		Forward53_1D(data)
		Inverse53_1D(data)
		if !slices.Equal(data, orig) {
			t.Fatalf("length %d: got %v, want %v", n, data, orig)
		}
	}
}

func TestRoundTripMultilevel(t *testing.T) {
	sizes := []struct{ w, h, levels int }{
		{1, 1, 0}, {7, 1, 0}, {2, 2, 1}, {5, 3, 1}, {17, 9, 3}, {64, 64, 5}, {130, 70, 5},
	}
	rng := rand.New(rand.NewSource(5))
	for _, sz := range sizes {
		orig := make([]int32, sz.w*sz.h)
		for i := range orig {
			orig[i] = rng.Int31n(256) - 128
		}
		data := slices.Clone(orig)
		ForwardMultilevel(data, sz.w, sz.h, sz.levels)
		InverseMultilevel(data, sz.w, sz.h, sz.levels)
		if !slices.Equal(data, orig) {
			t.Errorf("%dx%d with %d levels does not round-trip", sz.w, sz.h, sz.levels)
		}
	}
}

func TestForwardConstantHasNoDetail(t *testing.T) {
	w, h := 12, 10
	data := make([]int32, w*h)
	for i := range data {
		data[i] = 77
	}
	ForwardMultilevel(data, w, h, 2)
	// after two levels the LL band is 3x3 and every other coefficient is zero
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := data[y*w+x]
			if x < 3 && y < 3 {
				if v != 77 {
					t.Errorf("LL (%d,%d) = %d", x, y, v)
				}
			} else if v != 0 {
				t.Errorf("detail (%d,%d) = %d", x, y, v)
			}
		}
	}
}
