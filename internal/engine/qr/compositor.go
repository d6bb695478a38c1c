package qr

import (
	"image"
	"image/color"
	"image/draw"

	xdraw "golang.org/x/image/draw"
)

// Layers describes everything the compositor stacks onto a rendered matrix.
type Layers struct {
	Fill        image.Image
	Background  RGB
	Transparent bool
	Logo        image.Image
	OutputSize  int
}

// Mask rasterises the matrix: dark modules become fully opaque box x box squares.
func Mask(m *Matrix) *image.Alpha {
	box := m.BoxSize()
	n := m.Size()
	mask := image.NewAlpha(image.Rect(0, 0, n*box, n*box))

	for my := 0; my < n; my++ {
		for mx := 0; mx < n; mx++ {
			if !m.On(mx, my) {
				continue
			}
			for py := my * box; py < (my+1)*box; py++ {
				row := mask.PixOffset(mx*box, py)
				for i := 0; i < box; i++ {
					mask.Pix[row+i] = 0xff
				}
			}
		}
	}
	return mask
}

// Composite paints the fill through the module mask over the background, centres an
// optional logo and resizes the result to the requested output size.
func Composite(m *Matrix, layers Layers) *image.RGBA {
	mask := Mask(m)
	bounds := mask.Bounds()

	canvas := image.NewRGBA(bounds)
	if !layers.Transparent {
		draw.Draw(canvas, bounds, image.NewUniform(layers.Background.RGBA()), image.Point{}, draw.Src)
	}

	fill := layers.Fill
	if fill == nil {
		fill = image.NewUniform(Black.RGBA())
	}
	draw.DrawMask(canvas, bounds, fill, image.Point{}, mask, image.Point{}, draw.Over)

	if layers.Logo != nil {
		overlayLogo(canvas, layers.Logo, layers.Background, layers.Transparent)
	}

	return Resize(canvas, layers.OutputSize)
}

func overlayLogo(canvas *image.RGBA, logo image.Image, bg RGB, transparent bool) {
	b := canvas.Bounds()
	box := b.Dx() / logoFraction
	if box < 1 {
		return
	}

	x0 := b.Min.X + (b.Dx()-box)/2
	y0 := b.Min.Y + (b.Dy()-box)/2
	tile := image.Rect(x0, y0, x0+box, y0+box)

	var backing color.Color = bg.RGBA()
	if transparent {
		backing = color.Transparent
	}
	draw.Draw(canvas, tile, image.NewUniform(backing), image.Point{}, draw.Src)
	draw.Draw(canvas, tile, fitLogo(logo, box), image.Point{}, draw.Over)
}

// Resize scales img to size x size with nearest-neighbour sampling so module edges stay sharp.
// A non-positive size or an image already at that size is returned unchanged.
func Resize(img *image.RGBA, size int) *image.RGBA {
	b := img.Bounds()
	if size <= 0 || (b.Dx() == size && b.Dy() == size) {
		return img
	}
	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	xdraw.NearestNeighbor.Scale(dst, dst.Bounds(), img, b, xdraw.Src, nil)
	return dst
}
