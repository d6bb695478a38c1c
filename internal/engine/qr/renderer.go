// Package qr renders styled QR codes: matrix encoding, fills, compositing and SVG output.
package qr

import (
	"bytes"
	"fmt"
	"image"
	"image/png"

	"qrlink/internal/pkg/errors"
)

type Options struct {
	Version int
	Border  int
	MinSize int
	MaxSize int
}

// Renderer is stateless apart from its options and safe for concurrent use.
type Renderer struct {
	opts Options
}

type Result struct {
	Data        []byte
	ContentType string
	Filename    string
}

func NewRenderer(opts Options) (*Renderer, error) {
	if opts.Version < MinVersion || opts.Version > MaxVersion {
		return nil, fmt.Errorf("qr version must be between %d and %d, got %d", MinVersion, MaxVersion, opts.Version)
	}
	if opts.Border < 0 {
		return nil, fmt.Errorf("qr border must not be negative, got %d", opts.Border)
	}
	if opts.MaxSize > 0 && opts.MinSize > opts.MaxSize {
		return nil, fmt.Errorf("qr min size %d exceeds max size %d", opts.MinSize, opts.MaxSize)
	}
	return &Renderer{opts: opts}, nil
}

func (r *Renderer) Options() Options {
	return r.opts
}

// Render produces the encoded image bytes for req.
func (r *Renderer) Render(req RenderRequest) (*Result, error) {
	if err := req.validate(r.opts.MinSize, r.opts.MaxSize); err != nil {
		return nil, err
	}

	if req.Format == FormatSVG {
		m, err := r.encode(req)
		if err != nil {
			return nil, err
		}
		data := RenderSVG(m, SVGOptions{
			Foreground:  req.FillColor,
			Background:  req.Background,
			Transparent: req.Transparent,
			SizePx:      req.SizePx,
		})
		return &Result{Data: data, ContentType: FormatSVG.ContentType(), Filename: "qr_code.svg"}, nil
	}

	img, err := r.image(req)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, errors.E(errors.Internal, "qr.Render", err)
	}
	return &Result{Data: buf.Bytes(), ContentType: FormatPNG.ContentType(), Filename: "qr_code.png"}, nil
}

// Image runs the raster pipeline and returns the composited buffer.
func (r *Renderer) Image(req RenderRequest) (*image.RGBA, error) {
	if err := req.validate(r.opts.MinSize, r.opts.MaxSize); err != nil {
		return nil, err
	}
	if req.Format == FormatSVG {
		return nil, errors.Newf(errors.UnsupportedCombination, "qr.Image", "svg requests have no raster image")
	}
	return r.image(req)
}

func (r *Renderer) image(req RenderRequest) (*image.RGBA, error) {
	m, err := r.encode(req)
	if err != nil {
		return nil, err
	}

	var logo image.Image
	if req.LogoPath != "" {
		if logo, err = LoadLogo(req.LogoPath); err != nil {
			return nil, err
		}
	}

	px := m.PixelSize()
	fill := Fill(px, px, req.FillStyle, req.FillColor, req.FillColor2)

	return Composite(m, Layers{
		Fill:        fill,
		Background:  req.Background,
		Transparent: req.Transparent,
		Logo:        logo,
		OutputSize:  req.SizePx,
	}), nil
}

func (r *Renderer) encode(req RenderRequest) (*Matrix, error) {
	modules := SymbolSize(r.opts.Version) + 2*r.opts.Border
	return Encode(req.Data, EncodeOptions{
		Level:   req.ECC,
		Version: r.opts.Version,
		Border:  r.opts.Border,
		BoxSize: BoxSizeFor(req.SizePx, modules),
	})
}
