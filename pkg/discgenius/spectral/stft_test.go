package spectral

import (
	"math"
	"testing"
)

func TestHamming(t *testing.T) {
	for _, size := range []int{128, 512, 2048} {
		w := Hamming(size)
		if len(w) != size {
			t.Errorf("Expected window size %d, got %d", size, len(w))
		}
		for i, v := range w {
			if v < 0 || v > 1 {
				t.Errorf("Window value %d out of range [0,1]: %f", i, v)
			}
		}
		if w[0] >= w[size/2] {
			t.Error("Hamming window should be lower at edges")
		}
	}
}

func TestMagnitudeSpectrum(t *testing.T) {
	spectrum := []complex128{
		complex(1, 0),
		complex(0, 1),
		complex(3, 4),
		complex(0, 0),
	}

	mag := MagnitudeSpectrum(spectrum)
	if len(mag) != 3 {
		t.Fatalf("Expected 3 bins, got %d", len(mag))
	}
	if mag[2] != 5 {
		t.Errorf("Expected |3+4i| = 5, got %f", mag[2])
	}
}

func TestSTFTFrameCount(t *testing.T) {
	samples := make([]float64, 1024)
	frames, err := STFT(samples, 256, 128, Hamming(256))
	if err != nil {
		t.Fatalf("STFT failed: %v", err)
	}
	if len(frames) != 7 {
		t.Errorf("Expected 7 frames, got %d", len(frames))
	}
	if len(frames[0]) != 129 {
		t.Errorf("Expected 129 bins, got %d", len(frames[0]))
	}
}

func TestSTFTErrors(t *testing.T) {
	if _, err := STFT(make([]float64, 100), 256, 128, Hamming(256)); err == nil {
		t.Error("Expected error for input shorter than window")
	}
	if _, err := STFT(make([]float64, 512), 256, 128, Hamming(128)); err == nil {
		t.Error("Expected error for window length mismatch")
	}
}

func TestSTFTPeakAtToneBin(t *testing.T) {
	const (
		sr   = 8000
		size = 512
		bin  = 32 // 32 * 8000/512 = 500 Hz
	)
	samples := make([]float64, 4096)
	for i := range samples {
		samples[i] = math.Sin(2 * math.Pi * 500 * float64(i) / sr)
	}

	frames, err := STFT(samples, size, size/2, Hamming(size))
	if err != nil {
		t.Fatalf("STFT failed: %v", err)
	}

	avg := AverageSpectrum(frames)
	peak := 0
	for k := range avg {
		if avg[k] > avg[peak] {
			peak = k
		}
	}
	if peak != bin {
		t.Errorf("Expected peak at bin %d, got %d", bin, peak)
	}
}

func TestCenteredSTFTShortInput(t *testing.T) {
	frames, err := CenteredSTFT(make([]float64, 10), 2048, 512)
	if err != nil {
		t.Fatalf("CenteredSTFT failed: %v", err)
	}
	if len(frames) != 1 {
		t.Errorf("Expected 1 frame for short input, got %d", len(frames))
	}
}
