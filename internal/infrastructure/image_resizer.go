package infrastructure

import (
	"errors"
	"fmt"
	"image"
	"os"

	"github.com/disintegration/imaging"
)

// ErrImageTooLarge is returned for images whose declared dimensions exceed
// the resizer's pixel cap. Such files are never decoded.
var ErrImageTooLarge = errors.New("image exceeds pixel limit")

// ImageResizer shrinks stored images so they fit a bounding box.
type ImageResizer struct {
	maxPixels int64
}

// NewImageResizer returns a resizer that refuses images above maxPixels
// (width*height). A non-positive maxPixels disables the cap.
func NewImageResizer(maxPixels int64) *ImageResizer {
	return &ImageResizer{maxPixels: maxPixels}
}

// FitWithin rewrites the image at path in place when either dimension exceeds
// the bound, keeping the aspect ratio. It reports whether the file changed.
func (r *ImageResizer) FitWithin(path string, maxWidth, maxHeight int) (bool, error) {
	if maxWidth <= 0 || maxHeight <= 0 {
		return false, fmt.Errorf("invalid bound %dx%d", maxWidth, maxHeight)
	}

	width, height, err := r.dimensions(path)
	if err != nil {
		return false, err
	}
	if r.maxPixels > 0 && int64(width)*int64(height) > r.maxPixels {
		return false, fmt.Errorf("%s is %dx%d: %w", path, width, height, ErrImageTooLarge)
	}
	if width <= maxWidth && height <= maxHeight {
		return false, nil
	}

	img, err := imaging.Open(path)
	if err != nil {
		return false, fmt.Errorf("open image %s: %w", path, err)
	}

	resized := imaging.Fit(img, maxWidth, maxHeight, imaging.Lanczos)
	if err := imaging.Save(resized, path); err != nil {
		return false, fmt.Errorf("save image %s: %w", path, err)
	}
	return true, nil
}

// dimensions reads only the image header.
func (r *ImageResizer) dimensions(path string) (int, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, fmt.Errorf("open image %s: %w", path, err)
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, fmt.Errorf("read image header %s: %w", path, err)
	}
	return cfg.Width, cfg.Height, nil
}
