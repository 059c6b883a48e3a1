// Copyright © 2026 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package cpu

// post.go holds the post passes: tonemapping to ARGB8, glare
// estimation and framebuffer statistics. The reductions lean on gonum
// so percentiles and means match its well tested definitions.

import (
	"fmt"
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/ignis-render/ignis/device"
	"github.com/ignis-render/ignis/math/lin"
)

// luminance is the Rec. 709 luma weighting.
func luminance(r, g, b float32) float32 {
	return 0.2126*r + 0.7152*g + 0.0722*b
}

// normalized reads a plane averaged by its iteration count.
func normalized(b *aovBuffer, i int) float32 {
	if b.iters <= 1 {
		return b.data[i]
	}
	return b.data[i] / float32(b.iters)
}

// Tonemap converts a plane to packed ARGB8.
func (rd *renderDevice) Tonemap(out []uint32, settings device.TonemapSettings) error {
	start := time.Now()
	b, err := rd.fb.get(settings.AOV)
	if err != nil {
		return err
	}
	pixels := rd.fb.width * rd.fb.height
	if len(out) < pixels {
		return fmt.Errorf("cpu: tonemap output too small: %d < %d", len(out), pixels)
	}
	scale := settings.Scale
	if scale <= 0 {
		scale = 1
	}
	exposure := settings.ExposureFactor
	if exposure == 0 {
		exposure = 1
	}

	for p := 0; p < pixels; p++ {
		r := normalized(b, p*3)*scale*exposure + settings.ExposureOffset
		g := normalized(b, p*3+1)*scale*exposure + settings.ExposureOffset
		bl := normalized(b, p*3+2)*scale*exposure + settings.ExposureOffset

		r, g, bl = applyTonemap(settings.Method, r, g, bl)
		if settings.UseGamma {
			r, g, bl = srgbGamma(r), srgbGamma(g), srgbGamma(bl)
		}
		out[p] = 0xFF000000 |
			uint32(lin.Clamp(r, 0, 1)*255+0.5)<<16 |
			uint32(lin.Clamp(g, 0, 1)*255+0.5)<<8 |
			uint32(lin.Clamp(bl, 0, 1)*255+0.5)
	}
	rd.stats.Add(device.ShaderTonemap, time.Since(start), uint64(pixels))
	return nil
}

func applyTonemap(method device.TonemapMethod, r, g, b float32) (float32, float32, float32) {
	switch method {
	case device.TonemapReinhard:
		l := luminance(r, g, b)
		f := 1 / (1 + l)
		return r * f, g * f, b * f
	case device.TonemapModifiedReinhard:
		const whitePoint = 4.0
		l := luminance(r, g, b)
		f := (1 + l/(whitePoint*whitePoint)) / (1 + l)
		return r * f, g * f, b * f
	case device.TonemapACES:
		return acesFit(r), acesFit(g), acesFit(b)
	default:
		return r, g, b
	}
}

// acesFit is the common polynomial approximation of the ACES filmic
// curve.
func acesFit(x float32) float32 {
	const a, b, c, d, e = 2.51, 0.03, 2.43, 0.59, 0.14
	return lin.Clamp((x*(a*x+b))/(x*(c*x+d)+e), 0, 1)
}

func srgbGamma(v float32) float32 {
	if v <= 0.0031308 {
		return 12.92 * v
	}
	return 1.055*float32(math.Pow(float64(v), 1/2.4)) - 0.055
}

// EvaluateGlare estimates discomfort glare on the plane: pixels beyond
// a luminance threshold form the glare source set; the output mirrors
// the daylight glare probability inputs.
func (rd *renderDevice) EvaluateGlare(out []uint32, settings device.GlareSettings) (device.GlareOutput, error) {
	b, err := rd.fb.get(settings.AOV)
	if err != nil {
		return device.GlareOutput{}, err
	}
	pixels := rd.fb.width * rd.fb.height
	if pixels == 0 {
		return device.GlareOutput{}, nil
	}
	scale := settings.Scale
	if scale <= 0 {
		scale = 1
	}

	lum := make([]float64, pixels)
	for p := 0; p < pixels; p++ {
		lum[p] = float64(luminance(
			normalized(b, p*3), normalized(b, p*3+1), normalized(b, p*3+2)) * scale)
	}
	avg := stat.Mean(lum, nil)

	threshold := float64(settings.LuminanceAvg)
	if threshold <= 0 {
		threshold = 5 * avg
	}
	mult := settings.Multiplier
	if mult <= 0 {
		mult = 1
	}

	glare := 0
	var glareSum float64
	for p, l := range lum {
		if l > threshold {
			glare++
			glareSum += l
			if out != nil && p < len(out) {
				out[p] = 0xFFFF0000 // mark glare sources for inspection
			}
		} else if out != nil && p < len(out) {
			out[p] = 0xFF000000
		}
	}

	vertical := settings.VerticalIllum
	if vertical <= 0 {
		vertical = float32(avg) * lin.Pi
	}
	dgp := 5.87e-5*float64(vertical) + 0.0918*math.Log10(1+glareSum/math.Max(float64(vertical), 1e-6))
	return device.GlareOutput{
		DGPValue:      float32(dgp) * mult,
		VerticalIllum: vertical,
		AvgLum:        float32(avg),
		AvgOmega:      float32(glare) / float32(pixels),
		NumPixels:     glare,
	}, nil
}

// ImageInfo reduces a plane to summary statistics.
func (rd *renderDevice) ImageInfo(settings device.ImageInfoSettings) (device.ImageInfoOutput, error) {
	start := time.Now()
	b, err := rd.fb.get(settings.AOV)
	if err != nil {
		return device.ImageInfoOutput{}, err
	}
	pixels := rd.fb.width * rd.fb.height
	if pixels == 0 {
		return device.ImageInfoOutput{}, nil
	}
	scale := settings.Scale
	if scale <= 0 {
		scale = 1
	}

	var out device.ImageInfoOutput
	lum := make([]float64, 0, pixels)
	for p := 0; p < pixels; p++ {
		r := normalized(b, p*3) * scale
		g := normalized(b, p*3+1) * scale
		bl := normalized(b, p*3+2) * scale
		l := luminance(r, g, bl)
		if lin.IsNaN(l) {
			out.NaNCount++
			continue
		}
		if lin.IsInf(l) {
			out.InfCount++
			continue
		}
		lum = append(lum, float64(l))
	}
	if len(lum) == 0 {
		return out, nil
	}

	out.Min = float32(floats.Min(lum))
	out.Max = float32(floats.Max(lum))
	out.Average = float32(stat.Mean(lum, nil))

	sorted := append([]float64{}, lum...)
	sort.Float64s(sorted)
	out.Median = float32(stat.Quantile(0.5, stat.Empirical, sorted, nil))
	// Soft extrema trim the outlier percentiles.
	out.SoftMin = float32(stat.Quantile(0.02, stat.Empirical, sorted, nil))
	out.SoftMax = float32(stat.Quantile(0.98, stat.Empirical, sorted, nil))

	if settings.AcquireHistogram && settings.Bins > 0 {
		out.Histogram = make([]int, settings.Bins)
		span := out.Max - out.Min
		if span <= 0 {
			out.Histogram[0] = len(lum)
		} else {
			for _, l := range lum {
				bin := int(float32(l-float64(out.Min)) / span * float32(settings.Bins))
				if bin >= settings.Bins {
					bin = settings.Bins - 1
				}
				out.Histogram[bin]++
			}
		}
	}
	rd.stats.Add(device.ShaderImageInfo, time.Since(start), uint64(pixels))
	return out, nil
}

// Bake runs a one shot evaluation writing into out. Used to
// precompute light textures. The CPU backend only checks that the
// handle is bound; it does not run the bound kernel, and every texel
// receives the scene's constant environment radiance.
func (rd *renderDevice) Bake(shader device.Handle, resourceMap []string, out []float32) error {
	start := time.Now()
	if _, ok := rd.registry.lookup(shader); !ok {
		return fmt.Errorf("%w: bake handle", device.ErrKernelFailed)
	}
	// Baking without a scene evaluates to black; with one, texels mean
	// the scene's environment term.
	var env lin.V3
	if rd.scene != nil {
		env = rd.scene.env
	}
	for i := 0; i+2 < len(out); i += 3 {
		out[i] = env.X
		out[i+1] = env.Y
		out[i+2] = env.Z
	}
	rd.stats.Add(device.ShaderBake, time.Since(start), uint64(len(out)/3))
	return nil
}
