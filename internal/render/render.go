// Package render converts one stored raster slice to a color-mapped PNG for
// quick inspection. Cells without data are transparent; values are mapped
// linearly onto a two-color ramp over the slice's observed range.
package render

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"

	"golang.org/x/image/draw"

	"github.com/jacqryan/gridsif/internal/models"
)

// Options controls rendering. Zero values pick the defaults.
type Options struct {
	Scale int         // pixels per grid cell, default 4
	Low   color.NRGBA // ramp color at the minimum value
	High  color.NRGBA // ramp color at the maximum value
}

func (o *Options) applyDefaults() {
	if o.Scale < 1 {
		o.Scale = 4
	}
	var zero color.NRGBA
	if o.Low == zero && o.High == zero {
		o.Low = color.NRGBA{R: 0x1d, G: 0x30, B: 0x57, A: 0xff}  // deep blue
		o.High = color.NRGBA{R: 0xf3, G: 0xe0, B: 0x3a, A: 0xff} // yellow
	}
}

// Slice renders one variable of a raster slice. Rows are flipped so north is
// at the top; the image is upscaled without smoothing so cell boundaries
// stay visible.
func Slice(sl *models.RasterSlice, varIdx int, opts Options) (image.Image, error) {
	if varIdx < 0 || varIdx >= len(sl.Values) {
		return nil, fmt.Errorf("render: variable index %d out of range (%d variables)", varIdx, len(sl.Values))
	}
	opts.applyDefaults()

	lo, hi, any := valueRange(sl, varIdx)
	img := image.NewNRGBA(image.Rect(0, 0, sl.NumLon, sl.NumLat))
	for lonIdx := 0; lonIdx < sl.NumLon; lonIdx++ {
		for latIdx := 0; latIdx < sl.NumLat; latIdx++ {
			cell := sl.Index(lonIdx, latIdx)
			y := sl.NumLat - 1 - latIdx
			if !any || sl.Weights[cell] < models.MinWeight {
				continue // transparent
			}
			img.SetNRGBA(lonIdx, y, ramp(opts.Low, opts.High, normalize(sl.Values[varIdx][cell], lo, hi)))
		}
	}

	if opts.Scale == 1 {
		return img, nil
	}
	dst := image.NewNRGBA(image.Rect(0, 0, sl.NumLon*opts.Scale, sl.NumLat*opts.Scale))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
	return dst, nil
}

// WritePNG encodes an image to a file.
func WritePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("render: create %s: %w", path, err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		return fmt.Errorf("render: encode png: %w", err)
	}
	return nil
}

func valueRange(sl *models.RasterSlice, varIdx int) (lo, hi float64, any bool) {
	for cell, w := range sl.Weights {
		if w < models.MinWeight {
			continue
		}
		v := sl.Values[varIdx][cell]
		if !any || v < lo {
			lo = v
		}
		if !any || v > hi {
			hi = v
		}
		any = true
	}
	return lo, hi, any
}

func normalize(v, lo, hi float64) float64 {
	if hi == lo {
		return 1.0
	}
	return (v - lo) / (hi - lo)
}

func ramp(low, high color.NRGBA, t float64) color.NRGBA {
	lerp := func(a, b uint8) uint8 {
		return uint8(float64(a) + t*(float64(b)-float64(a)) + 0.5)
	}
	return color.NRGBA{
		R: lerp(low.R, high.R),
		G: lerp(low.G, high.G),
		B: lerp(low.B, high.B),
		A: lerp(low.A, high.A),
	}
}
