package main

import (
	"image/color"
	"os"
	"path/filepath"

	"github.com/Noofbiz/seqbatch/datasets"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// histBins is the number of bins of the per-batch efficiency histogram.
const histBins = 20

// plotEfficiency writes two PNGs into outDir: a histogram of per-batch padding
// efficiency over all epochs and the mean efficiency of each epoch.
func plotEfficiency(outDir string, epochs []datasets.EpochStats) error {
	if err := ensureDir(outDir); err != nil {
		return err
	}

	var values plotter.Values
	means := make(plotter.XYs, 0, len(epochs))
	for i, s := range epochs {
		values = append(values, s.Efficiencies...)
		means = append(means, plotter.XY{X: float64(i), Y: s.MeanEfficiency})
	}

	if len(values) > 0 {
		p := plot.New()
		p.Title.Text = "Batch padding efficiency (real / padded tokens)"
		p.X.Label.Text = "efficiency"
		p.Y.Label.Text = "batches"

		h, err := plotter.NewHist(values, histBins)
		if err != nil {
			return err
		}
		h.FillColor = color.RGBA{R: 20, G: 80, B: 200, A: 200}
		p.Add(h)
		p.Add(plotter.NewGrid())

		if err := p.Save(8*vg.Inch, 6*vg.Inch, filepath.Join(outDir, "efficiency_hist.png")); err != nil {
			return err
		}
	}

	p := plot.New()
	p.Title.Text = "Mean batch efficiency per epoch"
	p.X.Label.Text = "epoch"
	p.Y.Label.Text = "efficiency"
	p.Y.Min = 0
	p.Y.Max = 1

	line, err := plotter.NewLine(means)
	if err != nil {
		return err
	}
	line.Color = color.RGBA{R: 200, G: 30, B: 30, A: 220}
	line.Width = vg.Points(1.2)
	p.Add(line)
	p.Add(plotter.NewGrid())

	return p.Save(8*vg.Inch, 6*vg.Inch, filepath.Join(outDir, "efficiency_epochs.png"))
}

func ensureDir(path string) error {
	if path == "" {
		return nil
	}
	return os.MkdirAll(path, 0o755)
}
