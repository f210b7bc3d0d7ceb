// Package preprocess prepares rendered statement page bitmaps for OCR:
// region cropping, luma grayscale conversion, percentile contrast
// normalization and Otsu binarization. All passes are linear in pixel count;
// the input bitmap is never modified.
package preprocess

import (
	"errors"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

// ErrInvalidCropRegion indicates the fractional crop produced a zero-area
// region.
var ErrInvalidCropRegion = errors.New("invalid crop region")

// CropRegion expresses a crop as fractional bounds in [0,1] of the page.
type CropRegion struct {
	Top    float64
	Left   float64
	Right  float64
	Bottom float64
}

// minOCRHeight is the pixel height below which pages are upscaled; Tesseract
// accuracy degrades sharply on small renders.
const minOCRHeight = 900

// Run produces a pure black/white bitmap optimized for OCR. crop may be nil
// to process the full page.
func Run(img image.Image, crop *CropRegion) (*image.Gray, error) {
	if crop != nil {
		rect, err := cropRect(img.Bounds(), *crop)
		if err != nil {
			return nil, err
		}
		img = imaging.Crop(img, rect)
	}

	if h := img.Bounds().Dy(); h > 0 && h < minOCRHeight {
		img = imaging.Resize(img, 0, minOCRHeight+400, imaging.Lanczos)
	}

	gray := toGray(img)
	normalizeContrast(gray)
	threshold := OtsuThreshold(histogram(gray))
	binarize(gray, threshold)
	return gray, nil
}

func cropRect(bounds image.Rectangle, c CropRegion) (image.Rectangle, error) {
	w := float64(bounds.Dx())
	h := float64(bounds.Dy())

	x0 := bounds.Min.X + int(c.Left*w)
	x1 := bounds.Min.X + int(c.Right*w)
	y0 := bounds.Min.Y + int(c.Top*h)
	y1 := bounds.Min.Y + int(c.Bottom*h)

	if x1 <= x0 || y1 <= y0 {
		return image.Rectangle{}, ErrInvalidCropRegion
	}
	return image.Rect(x0, y0, x1, y1), nil
}

// toGray converts with the standard luma weights 0.299R + 0.587G + 0.114B.
func toGray(img image.Image) *image.Gray {
	bounds := img.Bounds()
	gray := image.NewGray(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			// RGBA returns 16-bit channels.
			luma := (299*(r>>8) + 587*(g>>8) + 114*(b>>8)) / 1000
			gray.SetGray(x-bounds.Min.X, y-bounds.Min.Y, color.Gray{Y: uint8(luma)})
		}
	}
	return gray
}

// normalizeContrast stretches the histogram so the 2nd percentile maps to 0
// and the 98th to 255, clamping outside that range.
func normalizeContrast(gray *image.Gray) {
	hist := histogram(gray)
	total := len(gray.Pix)
	if total == 0 {
		return
	}

	black := percentileLevel(hist, total, 0.02)
	white := percentileLevel(hist, total, 0.98)
	if white <= black {
		return
	}

	scale := 255.0 / float64(white-black)
	var lut [256]uint8
	for i := range lut {
		v := float64(i-black) * scale
		switch {
		case v < 0:
			lut[i] = 0
		case v > 255:
			lut[i] = 255
		default:
			lut[i] = uint8(v)
		}
	}
	for i, p := range gray.Pix {
		gray.Pix[i] = lut[p]
	}
}

func histogram(gray *image.Gray) [256]int {
	var hist [256]int
	for _, p := range gray.Pix {
		hist[p]++
	}
	return hist
}

// percentileLevel returns the intensity at which the cumulative histogram
// reaches the given fraction of pixels.
func percentileLevel(hist [256]int, total int, fraction float64) int {
	target := int(fraction * float64(total))
	cum := 0
	for i := 0; i < 256; i++ {
		cum += hist[i]
		if cum >= target {
			return i
		}
	}
	return 255
}

// OtsuThreshold selects the threshold maximizing inter-class variance over
// the histogram. Background/foreground counts and means are tracked
// incrementally so the scan is a single O(256) pass after the O(n) histogram.
func OtsuThreshold(hist [256]int) int {
	total := 0
	sum := 0.0
	for i, c := range hist {
		total += c
		sum += float64(i) * float64(c)
	}
	if total == 0 {
		return 127
	}

	var (
		sumBack    float64
		weightBack int
		bestVar    float64
		best       int
	)
	for t := 0; t < 256; t++ {
		weightBack += hist[t]
		if weightBack == 0 {
			continue
		}
		weightFore := total - weightBack
		if weightFore == 0 {
			break
		}

		sumBack += float64(t) * float64(hist[t])
		meanBack := sumBack / float64(weightBack)
		meanFore := (sum - sumBack) / float64(weightFore)

		diff := meanBack - meanFore
		between := float64(weightBack) * float64(weightFore) * diff * diff
		if between > bestVar {
			bestVar = between
			best = t
		}
	}
	return best
}

// binarize thresholds to pure black/white and auto-inverts when the result is
// mostly black, so text is consistently dark-on-light for the OCR engine.
func binarize(gray *image.Gray, threshold int) {
	black := 0
	for i, p := range gray.Pix {
		if int(p) <= threshold {
			gray.Pix[i] = 0
			black++
		} else {
			gray.Pix[i] = 255
		}
	}
	if black*2 > len(gray.Pix) {
		for i, p := range gray.Pix {
			gray.Pix[i] = 255 - p
		}
	}
}
