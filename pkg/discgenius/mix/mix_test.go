package mix

import (
	"math"
	"testing"

	"github.com/himanishpuri/discgenius/pkg/models"
)

func constTrack(t *testing.T, name string, v float64, frames, sr int) *models.Track {
	t.Helper()
	left := make([]float64, frames)
	for i := range left {
		left[i] = v
	}
	right := make([]float64, frames)
	copy(right, left)
	track, err := models.NewTrack(name, left, right, sr, 120)
	if err != nil {
		t.Fatal(err)
	}
	return track
}

func testSpan() models.FrameSpan {
	return models.FrameSpan{
		UntilA:       100,
		UntilB:       300,
		UntilX:       500,
		UntilC:       1000,
		UntilD:       1200,
		UntilE:       1400,
		BetweenCAndD: 200,
		BetweenDAndE: 200,
	}
}

func TestRenderLayout(t *testing.T) {
	a := constTrack(t, "a", 0.5, 2000, 1000)
	b := constTrack(t, "b", -0.25, 1500, 1000)
	sc, err := Lookup("CF_1.0")
	if err != nil {
		t.Fatal(err)
	}

	out, err := Render("mix", a, b, testSpan(), sc)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	if want := 1000 + 400 + 1000; out.Frames() != want {
		t.Fatalf("frames = %d, want %d", out.Frames(), want)
	}
	if out.Left[999] != 0.5 {
		t.Errorf("frame before C = %f, want A's 0.5", out.Left[999])
	}
	if out.Left[1000] != 0.5 {
		t.Errorf("crossfade should start on A, got %f", out.Left[1000])
	}
	if math.Abs(out.Left[1399]-(-0.25)) > 1e-3 {
		t.Errorf("crossfade should end on B, got %f", out.Left[1399])
	}
	if out.Left[1400] != -0.25 || out.Right[out.Frames()-1] != -0.25 {
		t.Error("tail should be B")
	}
	if a.Left[1100] != 0.5 || b.Left[150] != -0.25 {
		t.Error("inputs were modified")
	}
}

func TestRenderScenariosKeepLength(t *testing.T) {
	a := constTrack(t, "a", 0.5, 2000, 11025)
	b := constTrack(t, "b", 0.5, 1500, 11025)

	for _, name := range Names() {
		t.Run(name, func(t *testing.T) {
			sc, err := Lookup(name)
			if err != nil {
				t.Fatal(err)
			}
			out, err := Render("mix", a, b, testSpan(), sc)
			if err != nil {
				t.Fatalf("Render failed: %v", err)
			}
			if out.Frames() != 2400 {
				t.Errorf("frames = %d, want 2400", out.Frames())
			}
			for i, v := range out.Left {
				if math.IsNaN(v) || math.IsInf(v, 0) {
					t.Fatalf("sample %d is %v", i, v)
				}
			}
		})
	}
}

func TestRenderRejectsOverrun(t *testing.T) {
	a := constTrack(t, "a", 0.5, 1300, 1000)
	b := constTrack(t, "b", 0.5, 1500, 1000)
	sc, _ := Lookup("EQ_2.0")

	if _, err := Render("mix", a, b, testSpan(), sc); err == nil {
		t.Error("expected bounds error for a span past the end of A")
	}
}

func TestRenderPanicsOnSampleRateMismatch(t *testing.T) {
	a := constTrack(t, "a", 0.5, 2000, 1000)
	b := constTrack(t, "b", 0.5, 1500, 2000)
	sc, _ := Lookup("CF_1.0")

	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	Render("mix", a, b, testSpan(), sc)
}

func TestLookupUnknown(t *testing.T) {
	if _, err := Lookup("XF_9"); err == nil {
		t.Error("expected error for unknown scenario")
	}
	names := Names()
	if len(names) != 4 || names[0] != "CF_1.0" {
		t.Errorf("Names() = %v", names)
	}
}

func TestLowShelfCutsDC(t *testing.T) {
	x := make([]float64, 20000)
	for i := range x {
		x[i] = 1
	}
	lowShelf(x, 11025, bassCutoffHz, bassCutDB)

	want := math.Pow(10, bassCutDB/20)
	if got := x[len(x)-1]; math.Abs(got-want) > 1e-3 {
		t.Errorf("settled DC gain = %f, want %f", got, want)
	}
}

func TestHighShelfPassesDC(t *testing.T) {
	x := make([]float64, 20000)
	for i := range x {
		x[i] = 1
	}
	var f Biquad
	f.SetHighShelf(11025, bassCutoffHz, -20)
	f.Process(x)

	if got := x[len(x)-1]; math.Abs(got-1) > 1e-3 {
		t.Errorf("settled DC gain = %f, want 1", got)
	}
}

func TestSmoothstep(t *testing.T) {
	if Smoothstep(-1) != 0 || Smoothstep(2) != 1 {
		t.Error("smoothstep should clamp")
	}
	if Smoothstep(0.5) != 0.5 {
		t.Errorf("Smoothstep(0.5) = %f", Smoothstep(0.5))
	}
	for _, x := range []float64{0.1, 0.25, 0.4} {
		if math.Abs(Smoothstep(x)+Smoothstep(1-x)-1) > 1e-12 {
			t.Errorf("smoothstep not symmetric at %f", x)
		}
	}
}
