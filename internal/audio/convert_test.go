package audio

import (
	"errors"
	"math"
	"testing"
)

func TestBytesToInt16_LittleEndian(t *testing.T) {
	// 0x0102 in little-endian is {0x02, 0x01}
	out, err := BytesToInt16([]byte{0x02, 0x01, 0xff, 0xff})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 2 || out[0] != 0x0102 || out[1] != -1 {
		t.Fatalf("expected [258 -1], got %v", out)
	}
}

func TestBytesToInt16_Empty(t *testing.T) {
	out, err := BytesToInt16(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 0 {
		t.Fatalf("expected empty slice, got length %d", len(out))
	}
}

func TestBytesToInt16_OddLength(t *testing.T) {
	_, err := BytesToInt16([]byte{0x01, 0x02, 0x03})
	if !errors.Is(err, ErrOddLength) {
		t.Fatalf("expected ErrOddLength, got %v", err)
	}
}

func TestInt16ToBytes_LittleEndian(t *testing.T) {
	out := Int16ToBytes([]int16{0x0102})
	if len(out) != 2 || out[0] != 0x02 || out[1] != 0x01 {
		t.Fatalf("expected [0x02, 0x01], got %v", out)
	}
}

func TestBytesInt16_Roundtrip(t *testing.T) {
	samples := []int16{0, 1, -1, 1000, -1000, math.MaxInt16, math.MinInt16}
	result, err := BytesToInt16(Int16ToBytes(samples))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, s := range samples {
		if result[i] != s {
			t.Errorf("index %d: expected %d, got %d", i, s, result[i])
		}
	}
}

func TestScaleSample(t *testing.T) {
	tests := []struct {
		name        string
		s           int16
		volume      float64
		want        int16
		wantClipped bool
	}{
		{"unity", 1234, 1.0, 1234, false},
		{"half rounds away from zero", 3, 0.5, 2, false},
		{"negative half", -3, 0.5, -2, false},
		{"double", 1000, 2.0, 2000, false},
		{"saturate high", 20000, 2.0, math.MaxInt16, true},
		{"saturate low", -20000, 2.0, math.MinInt16, true},
		{"negative volume inverts", 100, -1.0, -100, false},
		{"invert min saturates", math.MinInt16, -1.0, math.MaxInt16, true},
		{"zero volume", 32000, 0, 0, false},
		{"huge volume", 1, 1000, 1000, false},
		{"huge volume saturates", 33, 1000, math.MaxInt16, true},
		{"nan volume is silence", 500, math.NaN(), 0, false},
		{"inf volume saturates", 1, math.Inf(1), math.MaxInt16, true},
		{"zero times inf is silence", 0, math.Inf(1), 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, clipped := ScaleSample(tt.s, tt.volume)
			if got != tt.want || clipped != tt.wantClipped {
				t.Errorf("ScaleSample(%d, %v) = (%d, %v), want (%d, %v)",
					tt.s, tt.volume, got, clipped, tt.want, tt.wantClipped)
			}
		})
	}
}

func TestScaleInt16_NeverWraps(t *testing.T) {
	volumes := []float64{-1000, -3.5, -1, -0.25, 0, 0.5, 1, 1.5, 7, 1000}
	samples := []int16{math.MinInt16, -20000, -1, 0, 1, 12345, math.MaxInt16}
	for _, v := range volumes {
		out, _ := ScaleInt16(samples, v)
		for i, s := range samples {
			exact := float64(s) * v
			if exact > 0 && out[i] < 0 || exact < 0 && out[i] > 0 {
				t.Errorf("volume %v sample %d: sign flipped to %d (wraparound)", v, s, out[i])
			}
		}
	}
}

func TestScaleInt16_ZeroVolumeIsSilence(t *testing.T) {
	out, clipped := ScaleInt16([]int16{math.MinInt16, -5, 0, 5, math.MaxInt16}, 0)
	if clipped != 0 {
		t.Errorf("expected no clipping, got %d", clipped)
	}
	for i, s := range out {
		if s != 0 {
			t.Errorf("index %d: expected 0, got %d", i, s)
		}
	}
}

func TestScaleInt16_LargeVolumeSaturates(t *testing.T) {
	out, clipped := ScaleInt16([]int16{-300, -40, 0, 40, 300}, 1000)
	want := []int16{math.MinInt16, math.MinInt16, 0, math.MaxInt16, math.MaxInt16}
	for i := range want {
		if out[i] != want[i] {
			t.Errorf("index %d: expected %d, got %d", i, want[i], out[i])
		}
	}
	if clipped != 4 {
		t.Errorf("expected 4 clipped samples, got %d", clipped)
	}
}

func TestScaleInt16_UnityCopies(t *testing.T) {
	in := []int16{1, 2, 3}
	out, _ := ScaleInt16(in, 1)
	out[0] = 99
	if in[0] != 1 {
		t.Fatal("ScaleInt16 must not alias its input")
	}
}

func TestScalePCM(t *testing.T) {
	pcm := Int16ToBytes([]int16{100, -100, 30000})
	out, clipped, err := ScalePCM(pcm, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	samples, _ := BytesToInt16(out)
	if samples[0] != 200 || samples[1] != -200 || samples[2] != math.MaxInt16 {
		t.Errorf("unexpected samples %v", samples)
	}
	if clipped != 1 {
		t.Errorf("expected 1 clipped, got %d", clipped)
	}

	if _, _, err := ScalePCM([]byte{1}, 1); !errors.Is(err, ErrOddLength) {
		t.Errorf("expected ErrOddLength, got %v", err)
	}
}

func TestStereoS16ToMono(t *testing.T) {
	stereo := Int16ToBytes([]int16{100, 300, -50, -150, math.MaxInt16, math.MaxInt16})
	// 追加一个不完整的尾部帧
	stereo = append(stereo, 0x01, 0x02)

	mono, err := BytesToInt16(StereoS16ToMono(stereo))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []int16{200, -100, math.MaxInt16}
	if len(mono) != len(want) {
		t.Fatalf("expected %d samples, got %d", len(want), len(mono))
	}
	for i := range want {
		if mono[i] != want[i] {
			t.Errorf("index %d: expected %d, got %d", i, want[i], mono[i])
		}
	}
}

func TestFloat32ToInt16Bytes(t *testing.T) {
	in := []float32{0, 0.5, -0.5, 1, -1, 1.5, -2, float32(math.NaN())}
	pcm, clipped := Float32ToInt16Bytes(in)
	got, err := BytesToInt16(pcm)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []int16{0, 16384, -16384, math.MaxInt16, -math.MaxInt16, math.MaxInt16, math.MinInt16, 0}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("index %d: expected %d, got %d", i, want[i], got[i])
		}
	}
	if clipped != 2 {
		t.Errorf("expected 2 clipped samples, got %d", clipped)
	}
}
