package mix

import "math"

// Biquad is a second-order IIR section in direct form I, with coefficients
// from the RBJ audio EQ cookbook. State survives coefficient changes so a
// stepped EQ does not click.
type Biquad struct {
	b0, b1, b2, a1, a2 float64
	x1, x2, y1, y2     float64
}

func (f *Biquad) set(b0, b1, b2, a0, a1, a2 float64) {
	f.b0, f.b1, f.b2 = b0/a0, b1/a0, b2/a0
	f.a1, f.a2 = a1/a0, a2/a0
}

// SetLowShelf boosts or cuts everything below f0 by gainDB.
func (f *Biquad) SetLowShelf(sampleRate int, f0, gainDB float64) {
	a := math.Pow(10, gainDB/40)
	w0 := 2 * math.Pi * f0 / float64(sampleRate)
	cos, sin := math.Cos(w0), math.Sin(w0)
	alpha := sin / math.Sqrt2 // shelf slope 1
	sq := 2 * math.Sqrt(a) * alpha

	f.set(
		a*((a+1)-(a-1)*cos+sq),
		2*a*((a-1)-(a+1)*cos),
		a*((a+1)-(a-1)*cos-sq),
		(a+1)+(a-1)*cos+sq,
		-2*((a-1)+(a+1)*cos),
		(a+1)+(a-1)*cos-sq,
	)
}

// SetHighShelf boosts or cuts everything above f0 by gainDB.
func (f *Biquad) SetHighShelf(sampleRate int, f0, gainDB float64) {
	a := math.Pow(10, gainDB/40)
	w0 := 2 * math.Pi * f0 / float64(sampleRate)
	cos, sin := math.Cos(w0), math.Sin(w0)
	alpha := sin / math.Sqrt2
	sq := 2 * math.Sqrt(a) * alpha

	f.set(
		a*((a+1)+(a-1)*cos+sq),
		-2*a*((a-1)+(a+1)*cos),
		a*((a+1)+(a-1)*cos-sq),
		(a+1)-(a-1)*cos+sq,
		2*((a-1)-(a+1)*cos),
		(a+1)-(a-1)*cos-sq,
	)
}

// SetHighPass is a Butterworth high-pass at f0.
func (f *Biquad) SetHighPass(sampleRate int, f0 float64) {
	w0 := 2 * math.Pi * f0 / float64(sampleRate)
	cos, sin := math.Cos(w0), math.Sin(w0)
	alpha := sin / math.Sqrt2

	f.set(
		(1+cos)/2,
		-(1 + cos),
		(1+cos)/2,
		1+alpha,
		-2*cos,
		1-alpha,
	)
}

// Process filters x in place.
func (f *Biquad) Process(x []float64) {
	for i, in := range x {
		out := f.b0*in + f.b1*f.x1 + f.b2*f.x2 - f.a1*f.y1 - f.a2*f.y2
		f.x2, f.x1 = f.x1, in
		f.y2, f.y1 = f.y1, out
		x[i] = out
	}
}

func lowShelf(x []float64, sampleRate int, f0, gainDB float64) {
	var f Biquad
	f.SetLowShelf(sampleRate, f0, gainDB)
	f.Process(x)
}

func highPass(x []float64, sampleRate int, f0 float64) {
	var f Biquad
	f.SetHighPass(sampleRate, f0)
	f.Process(x)
}

// Smoothstep is 3t² - 2t³ clamped to [0, 1].
func Smoothstep(t float64) float64 {
	if t <= 0 {
		return 0
	}
	if t >= 1 {
		return 1
	}
	return t * t * (3 - 2*t)
}

func scale(x []float64, gain float64) {
	for i := range x {
		x[i] *= gain
	}
}
