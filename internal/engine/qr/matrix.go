package qr

import (
	"fmt"
	"strings"

	"github.com/skip2/go-qrcode"
	"qrlink/internal/pkg/errors"
)

// ECCLevel is the QR error-correction level.
type ECCLevel string

const (
	ECCLow      ECCLevel = "L"
	ECCMedium   ECCLevel = "M"
	ECCQuartile ECCLevel = "Q"
	ECCHigh     ECCLevel = "H"
)

func ParseECC(s string) (ECCLevel, error) {
	switch l := ECCLevel(strings.ToUpper(strings.TrimSpace(s))); l {
	case ECCLow, ECCMedium, ECCQuartile, ECCHigh:
		return l, nil
	}
	return "", errors.Newf(errors.InvalidInput, "qr.ParseECC", fmt.Sprintf("unknown error correction level %q", s))
}

func (l ECCLevel) recoveryLevel() qrcode.RecoveryLevel {
	switch l {
	case ECCLow:
		return qrcode.Low
	case ECCMedium:
		return qrcode.Medium
	case ECCQuartile:
		return qrcode.High
	default:
		return qrcode.Highest
	}
}

const (
	MinVersion = 1
	MaxVersion = 40
)

// SymbolSize is the module count per side of a symbol of the given version, without border.
func SymbolSize(version int) int {
	return 17 + 4*version
}

// BoxSizeFor picks the smallest box size whose raster is at least sizePx wide.
func BoxSizeFor(sizePx, modules int) int {
	if sizePx <= 0 || modules <= 0 {
		return 1
	}
	box := (sizePx + modules - 1) / modules
	if box < 1 {
		box = 1
	}
	return box
}

type EncodeOptions struct {
	Level   ECCLevel
	Version int
	Border  int
	BoxSize int
}

// Matrix is the module grid of an encoded symbol including its quiet zone.
// It is not modified after Encode returns.
type Matrix struct {
	modules [][]bool
	border  int
	boxSize int
}

// Encode encodes data at the pinned version. Payloads that do not fit fail with
// CapacityExceeded rather than being truncated or promoted to a larger version.
func Encode(data string, opts EncodeOptions) (*Matrix, error) {
	const op = "qr.Encode"

	if data == "" {
		return nil, errors.Newf(errors.InvalidInput, op, "data is required")
	}
	if opts.Version < MinVersion || opts.Version > MaxVersion {
		return nil, errors.Newf(errors.InvalidInput, op, fmt.Sprintf("version must be between %d and %d", MinVersion, MaxVersion))
	}
	if opts.Border < 0 {
		return nil, errors.Newf(errors.InvalidInput, op, "border must not be negative")
	}
	if opts.Level == "" {
		opts.Level = ECCHigh
	}
	if opts.BoxSize < 1 {
		opts.BoxSize = 1
	}

	code, err := qrcode.NewWithForcedVersion(data, opts.Version, opts.Level.recoveryLevel())
	if err != nil {
		return nil, &errors.Error{
			Kind: errors.CapacityExceeded,
			Op:   op,
			Msg:  fmt.Sprintf("payload of %d bytes does not fit version %d at level %s", len(data), opts.Version, opts.Level),
			Err:  err,
		}
	}
	code.DisableBorder = true
	symbol := code.Bitmap()

	n := len(symbol)
	total := n + 2*opts.Border
	modules := make([][]bool, total)
	for y := range modules {
		modules[y] = make([]bool, total)
	}
	for y, row := range symbol {
		copy(modules[y+opts.Border][opts.Border:], row)
	}

	return &Matrix{modules: modules, border: opts.Border, boxSize: opts.BoxSize}, nil
}

// Size is the number of modules per side, quiet zone included.
func (m *Matrix) Size() int {
	return len(m.modules)
}

func (m *Matrix) Border() int {
	return m.border
}

func (m *Matrix) BoxSize() int {
	return m.boxSize
}

// PixelSize is the raster width of the matrix at its box size.
func (m *Matrix) PixelSize() int {
	return m.Size() * m.boxSize
}

func (m *Matrix) On(x, y int) bool {
	if y < 0 || y >= len(m.modules) || x < 0 || x >= len(m.modules) {
		return false
	}
	return m.modules[y][x]
}
