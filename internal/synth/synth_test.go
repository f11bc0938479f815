package synth

import "testing"

func TestRenderIsDeterministic(t *testing.T) {
	o := DefaultOptions()
	o.Duration = 4

	a, err := Render(o)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	b, _ := Render(o)

	if len(a) != 4*o.SampleRate {
		t.Fatalf("Expected %d samples, got %d", 4*o.SampleRate, len(a))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("sample %d differs between renders", i)
		}
	}
}

func TestRenderStaysInRange(t *testing.T) {
	o := DefaultOptions()
	o.Duration = 10
	o.StableBeat = 8

	samples, err := Render(o)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	for i, v := range samples {
		if v < -1 || v > 1 {
			t.Fatalf("sample %d out of range: %f", i, v)
		}
	}
}

func TestBeatAt(t *testing.T) {
	o := DefaultOptions()
	if got := o.BeatAt(0.75); got != 360 {
		t.Errorf("BeatAt(0.75) = %d, want 360", got)
	}
	if got := o.BeatTime(360); got != 180 {
		t.Errorf("BeatTime(360) = %f, want 180", got)
	}
}

func TestTrackHasEqualChannels(t *testing.T) {
	o := DefaultOptions()
	o.Duration = 2

	track, err := Track("synth_120", o)
	if err != nil {
		t.Fatalf("Track failed: %v", err)
	}
	if len(track.Left) != len(track.Right) || len(track.Mono) != len(track.Left) {
		t.Error("channel lengths differ")
	}
	if track.BPM != 120 {
		t.Errorf("BPM = %f, want 120", track.BPM)
	}
}
