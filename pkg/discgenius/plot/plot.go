// Package plot draws score curves and spectrograms as PNG files.
package plot

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"os"
	"path/filepath"

	"github.com/eligwz/spectrogram"
	"github.com/himanishpuri/discgenius/pkg/utils"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

const (
	spectrogramWidth  = 2048
	spectrogramHeight = 512
)

// Scores draws candidate scores against their ordinal. Entries equal to
// sentinel are left out so the eligible zone fills the y range; best, if
// non-negative, is marked.
func Scores(path, title string, scores []float64, sentinel float64, best int) error {
	pts := make(plotter.XYs, 0, len(scores))
	for i, v := range scores {
		if v == sentinel {
			continue
		}
		pts = append(pts, plotter.XY{X: float64(i), Y: v})
	}
	if len(pts) == 0 {
		return errors.New("no scored candidates to plot")
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Candidate"
	p.Y.Label.Text = "Score (lower is steadier)"

	line, err := plotter.NewLine(pts)
	if err != nil {
		return err
	}
	line.Width = vg.Points(1)
	line.Color = color.RGBA{B: 200, A: 255}
	p.Add(line)

	if best >= 0 && best < len(scores) {
		mark, err := plotter.NewScatter(plotter.XYs{{X: float64(best), Y: scores[best]}})
		if err != nil {
			return err
		}
		mark.Color = color.RGBA{R: 220, A: 255}
		mark.Radius = vg.Points(4)
		p.Add(mark)
		p.Legend.Add(fmt.Sprintf("best = %d", best), mark)
		p.Legend.Top = true
	}

	wt, err := p.WriterTo(14*vg.Inch, 6*vg.Inch, "png")
	if err != nil {
		return fmt.Errorf("failed to render plot: %w", err)
	}
	return utils.WriteFileAtomic(path, func(f *os.File) error {
		_, err := wt.WriteTo(f)
		return err
	})
}

// Spectrogram draws the magnitude spectrogram of samples.
func Spectrogram(path string, samples []float64, sampleRate int) error {
	if len(samples) == 0 {
		return errors.New("no samples to draw")
	}
	if err := utils.MakeDir(filepath.Dir(path)); err != nil {
		return err
	}

	img := spectrogram.NewImage128(image.Rect(0, 0, spectrogramWidth, spectrogramHeight))
	black := spectrogram.ParseColor("000000")
	draw.Draw(img, img.Bounds(), image.NewUniform(black), image.Point{}, draw.Src)

	spectrogram.Drawfft(
		img,
		samples,
		uint32(sampleRate),
		uint32(spectrogramHeight), // bins
		false,                     // Hamming window
		false,                     // FFT
		true,                      // magnitude
		false,                     // linear scale
	)

	tmp := utils.TempPath(path) + ".png"
	defer os.Remove(tmp)
	if err := spectrogram.SavePng(img, tmp); err != nil {
		return fmt.Errorf("failed to save spectrogram: %w", err)
	}
	return utils.MoveFile(tmp, path)
}
