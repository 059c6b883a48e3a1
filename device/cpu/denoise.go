// Copyright © 2026 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package cpu

// denoise.go filters the color plane into the Denoised AOV. The
// denoiser sits behind a narrow interface because external denoising
// libraries ship incompatible major versions with different buffer
// APIs; the render device only ever holds the interface.

import (
	"log/slog"

	"github.com/ignis-render/ignis/device"
	"github.com/ignis-render/ignis/math/lin"
)

// Denoiser filters the device's color plane in place of the Denoised
// AOV. Implementations may read the Normals and Albedo planes.
type Denoiser interface {
	Filter(rd *renderDevice) error
}

// denoise runs the configured denoiser when the required AOVs exist.
func (rd *renderDevice) denoise() {
	if rd.denoiser == nil {
		return
	}
	for _, name := range []string{device.AOVNormals, device.AOVAlbedo, device.AOVDenoised} {
		if _, err := rd.fb.get(name); err != nil {
			return // variant did not declare the denoise AOVs
		}
	}
	if err := rd.denoiser.Filter(rd); err != nil {
		slog.Warn("denoise failed", "error", err)
	}
}

// jointFilterDenoiser is the built-in CPU fallback: a small cross
// bilateral filter guided by the normal and albedo planes. Device
// colocated filters replace this when a GPU backend hosts the frame.
type jointFilterDenoiser struct {
	// Prefilter is a device controlled switch. Filter does not read it:
	// the guide planes are always used unfiltered.
	Prefilter bool
}

// Filter writes the filtered color into the Denoised plane.
func (d *jointFilterDenoiser) Filter(rd *renderDevice) error {
	color, err := rd.fb.get(device.AOVColor)
	if err != nil {
		return err
	}
	normals, err := rd.fb.get(device.AOVNormals)
	if err != nil {
		return err
	}
	albedo, err := rd.fb.get(device.AOVAlbedo)
	if err != nil {
		return err
	}
	outPlane, err := rd.fb.get(device.AOVDenoised)
	if err != nil {
		return err
	}

	width, height := rd.fb.width, rd.fb.height
	read := func(b *aovBuffer, x, y int) lin.V3 {
		p := (y*width + x) * 3
		return lin.NewV3(normalized(b, p), normalized(b, p+1), normalized(b, p+2))
	}

	const radius = 2
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			cN := read(normals, x, y).Unit()
			cA := read(albedo, x, y)
			var sum lin.V3
			var weight float32
			for dy := -radius; dy <= radius; dy++ {
				for dx := -radius; dx <= radius; dx++ {
					nx, ny := x+dx, y+dy
					if nx < 0 || ny < 0 || nx >= width || ny >= height {
						continue
					}
					w := float32(1)
					// Normal agreement gates edges.
					n := read(normals, nx, ny).Unit()
					w *= lin.Max(0, cN.Dot(n))
					// Albedo agreement gates texture detail.
					da := read(albedo, nx, ny).Sub(cA)
					w *= 1 / (1 + 8*da.LenSqr())
					// Spatial falloff.
					w *= 1 / (1 + 0.5*float32(dx*dx+dy*dy))
					if w <= 0 {
						continue
					}
					sum = sum.Add(read(color, nx, ny).Scale(w))
					weight += w
				}
			}
			p := (y*width + x) * 3
			out := read(color, x, y)
			if weight > 0 {
				out = sum.Scale(1 / weight)
			}
			outPlane.data[p] = out.X
			outPlane.data[p+1] = out.Y
			outPlane.data[p+2] = out.Z
		}
	}
	outPlane.iters = 1
	return nil
}
