package mqc

import (
	"math/rand"
	"testing"
)

func TestMQRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		n    int
		p    float64 // probability of a 1 bit
	}{
		{"empty", 0, 0.5},
		{"single", 1, 1},
		{"balanced", 5000, 0.5},
		{"skewed", 5000, 0.02},
		{"all ones", 3000, 1},
		{"all zeros", 3000, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rng := rand.New(rand.NewSource(int64(tt.n)))
			bits := make([]int, tt.n)
			ctxs := make([]int, tt.n)
			for i := range bits {
				if rng.Float64() < tt.p {
					bits[i] = 1
				}
				ctxs[i] = rng.Intn(NumContexts)
			}

			enc := NewMQEncoder()
			for i, b := range bits {
				enc.Encode(b, ctxs[i])
			}
			data := enc.Flush()
			t.Logf("%d decisions -> %d bytes", tt.n, len(data))

			dec := NewMQDecoder(data)
			for i, want := range bits {
				if got := dec.Decode(ctxs[i]); got != want {
					t.Fatalf("decision %d: got %d, want %d", i, got, want)
				}
			}
		})
	}
}

func TestMQFlushNeverEndsWithMarker(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for round := 0; round < 200; round++ {
		enc := NewMQEncoder()
		n := rng.Intn(400)
		for i := 0; i < n; i++ {
			enc.Encode(rng.Intn(2), CtxUNI)
		}
		data := enc.Flush()
		if len(data) > 0 && data[len(data)-1] == 0xFF {
			t.Fatalf("round %d: codeword ends with 0xFF", round)
		}
	}
}

func TestInitialContexts(t *testing.T) {
	cx := initialContexts()
	if len(cx) != NumContexts {
		t.Fatalf("got %d contexts, want %d", len(cx), NumContexts)
	}
	if cx[CtxUNI].state() != 46 || cx[CtxRL].state() != 3 || cx[CtxZCStart].state() != 4 {
		t.Errorf("unexpected reset states: uni=%d rl=%d zc=%d", cx[CtxUNI].state(), cx[CtxRL].state(), cx[CtxZCStart].state())
	}
	for i, c := range cx {
		if c.mps() != 0 {
			t.Errorf("context %d starts with MPS 1", i)
		}
	}
}
