package t1

import (
	"math/rand"
	"testing"
)

func randomBlock(rng *rand.Rand, n int, maxMag int32) []int32 {
	data := make([]int32, n)
	for i := range data {
		switch rng.Intn(4) {
		case 0:
			// keep zeros common so run-length coding is exercised
		default:
			data[i] = rng.Int31n(2*maxMag+1) - maxMag
		}
	}
	return data
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	sizes := []struct{ w, h int }{
		{1, 1}, {1, 7}, {5, 1}, {3, 3}, {4, 4}, {5, 5}, {7, 9}, {16, 16}, {33, 17}, {64, 64},
	}
	mags := []int32{1, 2, 255, 4095, 70000}

	rng := rand.New(rand.NewSource(1))
	for _, sz := range sizes {
		for _, m := range mags {
			for orient := 0; orient < 4; orient++ {
				data := randomBlock(rng, sz.w*sz.h, m)

				enc := NewEncoder(sz.w, sz.h, orient).Encode(data)
				got := NewDecoder(sz.w, sz.h, orient).Decode(enc.Data, enc.NumBitplanes, enc.NumPasses)
				for i := range data {
					if got[i] != data[i] {
						t.Fatalf("%dx%d orient %d max %d: coefficient %d is %d, want %d",
							sz.w, sz.h, orient, m, i, got[i], data[i])
					}
				}
			}
		}
	}
}

func TestEncodeZeroBlock(t *testing.T) {
	enc := NewEncoder(8, 8, 0).Encode(make([]int32, 64))
	if enc.NumPasses != 0 || enc.NumBitplanes != 0 || len(enc.Data) != 0 {
		t.Fatalf("zero block coded as %+v", enc)
	}
	got := NewDecoder(8, 8, 0).Decode(nil, 0, 0)
	for i, v := range got {
		if v != 0 {
			t.Fatalf("coefficient %d is %d", i, v)
		}
	}
}

func TestDecodeTruncatedPasses(t *testing.T) {
	data := []int32{100, -37, 0, 5, 64, -1, 12, 90, 0}
	enc := NewEncoder(3, 3, 3).Encode(data)
	if enc.NumBitplanes != 7 || enc.NumPasses != NumPasses(7) {
		t.Fatalf("got %d bit-planes and %d passes", enc.NumBitplanes, enc.NumPasses)
	}

	// only the first cleanup pass: the top bit-plane of each magnitude
	got := NewDecoder(3, 3, 3).Decode(enc.Data, enc.NumBitplanes, 1)
	for i, v := range data {
		want := v
		if want < 0 {
			want = -want
		}
		want &= 64
		if v < 0 {
			want = -want
		}
		if got[i] != want {
			t.Errorf("coefficient %d: got %d, want %d", i, got[i], want)
		}
	}
}

func TestNumPasses(t *testing.T) {
	for nb, want := range map[int]int{0: 0, 1: 1, 2: 4, 8: 22, 16: 46} {
		if got := NumPasses(nb); got != want {
			t.Errorf("NumPasses(%d) = %d, want %d", nb, got, want)
		}
	}
}
