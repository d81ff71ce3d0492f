package composite

import (
	"fmt"
	"image"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"

	"panelcast/internal/config"
	"panelcast/internal/services"
)

// Placement is where the fitted page lands on the frame.
type Placement struct {
	Width  int
	Height int
	X      int
	Y      int
}

// Fit scales a srcW x srcH image to fit inside dstW x dstH. The scaled edge
// that does not touch the frame is truncated and then rounded up to an even
// size, and the image is centered along it.
func Fit(srcW, srcH, dstW, dstH int) Placement {
	if srcW <= 0 || srcH <= 0 {
		return Placement{Width: dstW, Height: dstH}
	}
	srcAspect := float64(srcW) / float64(srcH)
	dstAspect := float64(dstW) / float64(dstH)

	if srcAspect > dstAspect {
		h := int(float64(dstW) / srcAspect)
		if h%2 != 0 {
			h++
		}
		return Placement{Width: dstW, Height: h, X: 0, Y: (dstH - h) / 2}
	}
	w := int(float64(dstH) * srcAspect)
	if w%2 != 0 {
		w++
	}
	return Placement{Width: w, Height: dstH, X: (dstW - w) / 2, Y: 0}
}

// Options tunes the blurred background.
type Options struct {
	BlurRadius float64
	// BackgroundDownscale shrinks the background by this factor before
	// blurring. Values below 1 blur at full size.
	BackgroundDownscale int
}

// OptionsFromConfig reads composite settings.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		BlurRadius:          cfg.Composite.BlurRadius,
		BackgroundDownscale: cfg.Composite.BackgroundDownscale,
	}
}

// Compose returns a width x height frame with img fitted over its own blurred
// background.
func Compose(img image.Image, width, height int, opts Options) *image.NRGBA {
	bounds := img.Bounds()
	place := Fit(bounds.Dx(), bounds.Dy(), width, height)

	frame := imaging.New(width, height, image.Black)
	frame = imaging.Paste(frame, background(img, width, height, opts), image.Pt(0, 0))

	fitted := imaging.Resize(img, place.Width, place.Height, imaging.Lanczos)
	return imaging.Paste(frame, fitted, image.Pt(place.X, place.Y))
}

func background(img image.Image, width, height int, opts Options) *image.NRGBA {
	scale := opts.BackgroundDownscale
	if scale < 1 {
		scale = 1
	}
	bw, bh := max(width/scale, 1), max(height/scale, 1)
	bg := imaging.Resize(img, bw, bh, imaging.Lanczos)
	if opts.BlurRadius > 0 {
		bg = imaging.Blur(bg, opts.BlurRadius/float64(scale))
	}
	if scale == 1 {
		return bg
	}
	return imaging.Resize(bg, width, height, imaging.Linear)
}

// Render decodes the page at src, composes it at spec's resolution, and writes
// the frame to dst. The output format follows dst's extension.
func Render(src, dst string, spec config.VideoSpec, opts Options) error {
	img, err := imaging.Open(src, imaging.AutoOrientation(true))
	if err != nil {
		return services.Wrap(services.ErrValidation, "composite", "decode page", src, err)
	}
	if b := img.Bounds(); b.Dx() == 0 || b.Dy() == 0 {
		return services.Wrap(services.ErrValidation, "composite", "decode page", fmt.Sprintf("%s has no pixels", src), nil)
	}

	frame := Compose(img, spec.Width, spec.Height, opts)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return services.Wrap(services.ErrConfiguration, "composite", "create frame dir", filepath.Dir(dst), err)
	}
	if err := imaging.Save(frame, dst); err != nil {
		_ = os.Remove(dst)
		return services.Wrap(services.ErrValidation, "composite", "write frame", dst, err)
	}
	return nil
}
