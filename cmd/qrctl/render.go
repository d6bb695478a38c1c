package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"qrlink/internal/engine/qr"
	"qrlink/internal/pkg/fileutil"
)

type renderOptions struct {
	out         string
	size        int
	ecc         string
	style       string
	fill        string
	fill2       string
	background  string
	transparent bool
	logo        string
	format      string
}

func newRenderCmd(root *rootOptions) *cobra.Command {
	opts := &renderOptions{}

	cmd := &cobra.Command{
		Use:     "render <data>",
		Aliases: []string{"r"},
		Short:   "Render a QR code to a file",
		Long: `Render encodes data with the server's pinned QR version and writes PNG or SVG.
Use "-o -" to write to stdout. --logo takes a PNG or JPEG path.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(cmd, root, opts, args[0])
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.out, "out", "o", "", "output file (default qr_code.png or qr_code.svg, - for stdout)")
	f.IntVarP(&opts.size, "size", "s", 0, "output size in pixels (default qr.default_size)")
	f.StringVar(&opts.ecc, "ecc", "", "error correction L, M, Q or H (default qr.default_ecc)")
	f.StringVar(&opts.style, "style", "solid", "fill style: solid, linear or radial")
	f.StringVar(&opts.fill, "fill", "#000", "module colour")
	f.StringVar(&opts.fill2, "fill2", "#000", "second gradient colour")
	f.StringVar(&opts.background, "bg", "#fff", "background colour")
	f.BoolVar(&opts.transparent, "transparent", false, "transparent background")
	f.StringVar(&opts.logo, "logo", "", "logo image to place in the centre")
	f.StringVarP(&opts.format, "format", "f", "png", "output format: png or svg")
	return cmd
}

func runRender(cmd *cobra.Command, root *rootOptions, opts *renderOptions, data string) error {
	cfg, err := root.load()
	if err != nil {
		return err
	}

	size := opts.size
	if size <= 0 {
		size = cfg.QR.DefaultSize
	}
	req := qr.NewRenderRequest(data, size)

	ecc := opts.ecc
	if ecc == "" {
		ecc = cfg.QR.DefaultECC
	}
	if req.ECC, err = qr.ParseECC(ecc); err != nil {
		return err
	}
	if req.FillStyle, err = qr.ParseFillStyle(opts.style); err != nil {
		return err
	}
	if req.Format, err = qr.ParseFormat(opts.format); err != nil {
		return err
	}
	if req.FillColor, err = qr.ParseColor(opts.fill); err != nil {
		return err
	}
	if req.FillColor2, err = qr.ParseColor(opts.fill2); err != nil {
		return err
	}
	if req.Background, err = qr.ParseColor(opts.background); err != nil {
		return err
	}
	req.Transparent = opts.transparent
	req.LogoPath = opts.logo

	renderer, err := qr.NewRenderer(qr.Options{
		Version: cfg.QR.Version,
		Border:  cfg.QR.Border,
		MinSize: cfg.QR.MinSize,
		MaxSize: cfg.QR.MaxSize,
	})
	if err != nil {
		return err
	}

	res, err := renderer.Render(req)
	if err != nil {
		return err
	}

	out := opts.out
	if out == "" {
		out = res.Filename
	}
	if out == "-" {
		_, err := cmd.OutOrStdout().Write(res.Data)
		return err
	}
	if err := fileutil.WriteFileAtomic(out, res.Data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s (%s, %d bytes)\n", out, strings.TrimPrefix(res.ContentType, "image/"), len(res.Data))
	return nil
}
