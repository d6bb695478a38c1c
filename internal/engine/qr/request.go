package qr

import (
	"fmt"
	"strings"

	"qrlink/internal/pkg/errors"
)

type Format string

const (
	FormatPNG Format = "png"
	FormatSVG Format = "svg"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatPNG, FormatSVG:
		return f, nil
	case "":
		return FormatPNG, nil
	}
	return "", errors.Newf(errors.InvalidInput, "qr.ParseFormat", fmt.Sprintf("unknown output format %q", s))
}

func (f Format) ContentType() string {
	if f == FormatSVG {
		return "image/svg+xml"
	}
	return "image/png"
}

// RenderRequest is a fully parsed render job. LogoPath, when set, points at a logo
// already validated by the asset store.
type RenderRequest struct {
	Data        string
	ECC         ECCLevel
	FillStyle   FillStyle
	FillColor   RGB
	FillColor2  RGB
	Background  RGB
	Transparent bool
	SizePx      int
	LogoPath    string
	Format      Format
}

// NewRenderRequest returns a request with the defaults used by the web form.
func NewRenderRequest(data string, sizePx int) RenderRequest {
	return RenderRequest{
		Data:       data,
		ECC:        ECCHigh,
		FillStyle:  FillSolid,
		FillColor:  Black,
		FillColor2: Black,
		Background: White,
		SizePx:     sizePx,
		Format:     FormatPNG,
	}
}

func (r RenderRequest) validate(minSize, maxSize int) error {
	const op = "qr.Render"

	if strings.TrimSpace(r.Data) == "" {
		return errors.Newf(errors.InvalidInput, op, "data is required")
	}
	switch r.ECC {
	case ECCLow, ECCMedium, ECCQuartile, ECCHigh:
	default:
		// Free-form input goes through ParseECC first.
		return errors.Newf(errors.InvalidInput, op, fmt.Sprintf("unknown error correction level %q", r.ECC))
	}
	switch r.FillStyle {
	case FillSolid, FillLinear, FillRadial:
	default:
		return errors.Newf(errors.InvalidInput, op, fmt.Sprintf("unknown fill style %q", r.FillStyle))
	}
	switch r.Format {
	case FormatPNG, FormatSVG:
	default:
		return errors.Newf(errors.InvalidInput, op, fmt.Sprintf("unknown output format %q", r.Format))
	}
	if r.SizePx <= 0 {
		return errors.Newf(errors.InvalidInput, op, "size must be positive")
	}
	if (minSize > 0 && r.SizePx < minSize) || (maxSize > 0 && r.SizePx > maxSize) {
		return errors.Newf(errors.InvalidInput, op, fmt.Sprintf("size must be between %d and %d", minSize, maxSize))
	}

	if r.Format == FormatSVG {
		if r.LogoPath != "" {
			return errors.Newf(errors.UnsupportedCombination, op, "svg output does not support a logo")
		}
		if r.FillStyle.IsGradient() {
			return errors.Newf(errors.UnsupportedCombination, op, "svg output does not support gradient fills")
		}
	}
	return nil
}
