// Copyright © 2026 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

// igcli renders a scene description to a PNG image.
//
//	igcli -spp 64 -out frame.png scene.yaml
package main

import (
	"flag"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"os"

	xdraw "golang.org/x/image/draw"

	"github.com/ignis-render/ignis"
	"github.com/ignis-render/ignis/device"
	"github.com/ignis-render/ignis/ilog"
)

func main() {
	var (
		out     = flag.String("out", "out.png", "output image file")
		spp     = flag.Int("spp", 64, "samples per pixel to accumulate")
		width   = flag.Int("width", 0, "override film width")
		height  = flag.Int("height", 0, "override film height")
		scale   = flag.Float64("scale", 1, "scale the output image")
		tech    = flag.String("technique", "", "override the scene technique")
		denoise = flag.Bool("denoise", false, "run the denoiser each iteration")
		verbose = flag.Bool("v", false, "debug logging")
		stats   = flag.Bool("stats", false, "print shader statistics")
		logFile = flag.String("log", "", "also log to this file")
	)
	flag.Parse()
	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: igcli [flags] scene.yaml")
		flag.PrintDefaults()
		os.Exit(2)
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	closer, err := ilog.Setup(level, true, *logFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if closer != nil {
		defer closer.Close()
	}

	if err := run(flag.Arg(0), *out, *spp, *width, *height, *scale, *tech, *denoise, *stats); err != nil {
		slog.Error("render failed", "error", err)
		os.Exit(1)
	}
}

func run(scenePath, outPath string, spp, width, height int, scale float64, tech string, denoise, stats bool) error {
	rt, err := ignis.NewRuntime(ignis.Options{
		RecommendCPU:       true,
		OverrideTechnique:  tech,
		OverrideFilmWidth:  width,
		OverrideFilmHeight: height,
		Denoise:            denoise,
		AcquireStats:       stats,
	})
	if err != nil {
		return err
	}
	if err := rt.LoadFromFile(scenePath); err != nil {
		return err
	}
	defer rt.Shutdown()

	for rt.SampleCount() < spp {
		if err := rt.Step(); err != nil {
			return err
		}
	}
	slog.Info("render finished",
		"iterations", rt.Iteration(), "samples", rt.SampleCount())

	w, h := rt.FilmWidth(), rt.FilmHeight()
	pixels := make([]uint32, w*h)
	if err := rt.Tonemap(pixels, device.TonemapSettings{
		Method:   device.TonemapACES,
		UseGamma: true,
		Scale:    1,
	}); err != nil {
		return err
	}

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for p, argb := range pixels {
		i := p * 4
		img.Pix[i] = uint8(argb >> 16)
		img.Pix[i+1] = uint8(argb >> 8)
		img.Pix[i+2] = uint8(argb)
		img.Pix[i+3] = uint8(argb >> 24)
	}

	final := image.Image(img)
	if scale != 1 && scale > 0 {
		sw, sh := int(float64(w)*scale), int(float64(h)*scale)
		scaled := image.NewRGBA(image.Rect(0, 0, sw, sh))
		xdraw.CatmullRom.Scale(scaled, scaled.Bounds(), img, img.Bounds(), xdraw.Over, nil)
		final = scaled
	}

	f, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := png.Encode(f, final); err != nil {
		return err
	}
	slog.Info("image written", "file", outPath)

	if stats {
		if s := rt.Statistics(); s != nil {
			fmt.Println(s.Dump())
		}
	}
	return nil
}
