package qr

import (
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"
	"os"

	xdraw "golang.org/x/image/draw"
	"qrlink/internal/pkg/errors"
)

const (
	// logoFraction is the share of the symbol width reserved for the logo tile.
	logoFraction = 4
	logoPadRatio = 0.13
)

// LoadLogo decodes a PNG or JPEG logo from disk.
func LoadLogo(path string) (image.Image, error) {
	const op = "qr.LoadLogo"

	f, err := os.Open(path)
	if err != nil {
		return nil, &errors.Error{Kind: errors.LogoUnreadable, Op: op, Msg: "logo not found", Err: err}
	}
	defer f.Close()

	img, format, err := image.Decode(f)
	if err != nil {
		return nil, &errors.Error{Kind: errors.LogoUnreadable, Op: op, Msg: "logo could not be decoded", Err: err}
	}
	if format != "png" && format != "jpeg" {
		return nil, errors.Newf(errors.LogoUnreadable, op, fmt.Sprintf("unsupported logo format %q", format))
	}
	return img, nil
}

// trimTransparent crops fully transparent rows and columns from the edges of img.
func trimTransparent(img image.Image) image.Image {
	b := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)

	minX, minY, maxX, maxY := rgba.Bounds().Dx(), rgba.Bounds().Dy(), -1, -1
	for y := 0; y < rgba.Bounds().Dy(); y++ {
		for x := 0; x < rgba.Bounds().Dx(); x++ {
			if rgba.Pix[rgba.PixOffset(x, y)+3] == 0 {
				continue
			}
			if x < minX {
				minX = x
			}
			if y < minY {
				minY = y
			}
			if x > maxX {
				maxX = x
			}
			if y > maxY {
				maxY = y
			}
		}
	}
	if maxX < 0 {
		return rgba
	}
	return rgba.SubImage(image.Rect(minX, minY, maxX+1, maxY+1))
}

// fitLogo centres the trimmed logo inside a transparent box x box tile,
// scaled to fit within the padded area with its aspect ratio kept.
func fitLogo(logo image.Image, box int) *image.RGBA {
	tile := image.NewRGBA(image.Rect(0, 0, box, box))

	src := trimTransparent(logo)
	sb := src.Bounds()
	if sb.Dx() == 0 || sb.Dy() == 0 {
		return tile
	}

	pad := int(float64(box) * logoPadRatio)
	inner := box - 2*pad
	if inner < 1 {
		inner = 1
	}

	w, h := inner, inner
	if sb.Dx() > sb.Dy() {
		h = inner * sb.Dy() / sb.Dx()
	} else {
		w = inner * sb.Dx() / sb.Dy()
	}
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}

	x0, y0 := (box-w)/2, (box-h)/2
	xdraw.CatmullRom.Scale(tile, image.Rect(x0, y0, x0+w, y0+h), src, sb, xdraw.Src, nil)
	return tile
}
