package qr

import (
	"fmt"
	"image"
	"math"
	"strings"

	"qrlink/internal/pkg/errors"
)

type FillStyle string

const (
	FillSolid  FillStyle = "solid"
	FillLinear FillStyle = "linear"
	FillRadial FillStyle = "radial"
)

func ParseFillStyle(s string) (FillStyle, error) {
	switch f := FillStyle(strings.ToLower(strings.TrimSpace(s))); f {
	case FillSolid, FillLinear, FillRadial:
		return f, nil
	case "":
		return FillSolid, nil
	}
	return "", errors.Newf(errors.InvalidInput, "qr.ParseFillStyle", fmt.Sprintf("unknown fill style %q", s))
}

func (f FillStyle) IsGradient() bool {
	return f == FillLinear || f == FillRadial
}

// Fill returns a fully opaque w x h buffer painted with style.
// Linear gradients run from c1 at the top-left pixel to c2 at the bottom-right pixel;
// radial gradients run from c1 at the centre to c2 at the corners.
func Fill(w, h int, style FillStyle, c1, c2 RGB) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	if w <= 0 || h <= 0 {
		return img
	}

	switch style {
	case FillLinear:
		for y := 0; y < h; y++ {
			ty := unit(y, h)
			for x := 0; x < w; x++ {
				setPix(img, x, y, lerpRGB(c1, c2, (unit(x, w)+ty)/2))
			}
		}
	case FillRadial:
		cx, cy := float64(w-1)/2, float64(h-1)/2
		maxDist := math.Hypot(cx, cy)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				t := 0.0
				if maxDist > 0 {
					t = math.Min(1, math.Hypot(float64(x)-cx, float64(y)-cy)/maxDist)
				}
				setPix(img, x, y, lerpRGB(c1, c2, t))
			}
		}
	default:
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				setPix(img, x, y, c1)
			}
		}
	}
	return img
}

// unit maps pixel i of n onto [0,1] with both end pixels included.
func unit(i, n int) float64 {
	if n <= 1 {
		return 0
	}
	return float64(i) / float64(n-1)
}

func lerpRGB(a, b RGB, t float64) RGB {
	return RGB{lerp(a.R, b.R, t), lerp(a.G, b.G, t), lerp(a.B, b.B, t)}
}

func lerp(a, b uint8, t float64) uint8 {
	v := math.Round(float64(a) + (float64(b)-float64(a))*t)
	switch {
	case v < 0:
		return 0
	case v > 255:
		return 255
	}
	return uint8(v)
}

func setPix(img *image.RGBA, x, y int, c RGB) {
	i := img.PixOffset(x, y)
	img.Pix[i+0] = c.R
	img.Pix[i+1] = c.G
	img.Pix[i+2] = c.B
	img.Pix[i+3] = 255
}
