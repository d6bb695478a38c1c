package qr

import (
	"bytes"
	"fmt"
)

type SVGOptions struct {
	Foreground  RGB
	Background  RGB
	Transparent bool
	// SizePx sets the width and height attributes. Zero uses ten pixels per module.
	SizePx int
}

// RenderSVG emits the matrix as a single path in module coordinates.
// Horizontal runs of dark modules are merged into one rectangle each.
func RenderSVG(m *Matrix, opts SVGOptions) []byte {
	n := m.Size()
	size := opts.SizePx
	if size <= 0 {
		size = n * 10
	}

	var buf bytes.Buffer
	buf.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	fmt.Fprintf(&buf, `<svg xmlns="http://www.w3.org/2000/svg" version="1.1" width="%d" height="%d" viewBox="0 0 %d %d" shape-rendering="crispEdges">`+"\n",
		size, size, n, n)

	if !opts.Transparent {
		fmt.Fprintf(&buf, `<rect width="%d" height="%d" fill="%s"/>`+"\n", n, n, opts.Background.Hex())
	}

	fmt.Fprintf(&buf, `<path fill="%s" d="`, opts.Foreground.Hex())
	for y := 0; y < n; y++ {
		for x := 0; x < n; {
			if !m.On(x, y) {
				x++
				continue
			}
			start := x
			for x < n && m.On(x, y) {
				x++
			}
			fmt.Fprintf(&buf, "M%d %dh%dv1h-%dz", start, y, x-start, x-start)
		}
	}
	buf.WriteString(`"/>` + "\n</svg>\n")

	return buf.Bytes()
}
