package orm

import "log"

// ImageProcessor shrinks the image stored at path to fit a bounding box.
type ImageProcessor interface {
	FitWithin(path string, maxWidth, maxHeight int) (bool, error)
}

// ImageHook is run by a repository after a row carrying an image path has
// been written. Failures are logged and never undo the write.
type ImageHook struct {
	Processor ImageProcessor
	// Resolve turns a stored relative path into a filesystem path.
	Resolve   func(rel string) string
	MaxWidth  int
	MaxHeight int
}

func (h *ImageHook) afterSave(kind, rel string) {
	if h == nil || h.Processor == nil || rel == "" {
		return
	}
	path := rel
	if h.Resolve != nil {
		path = h.Resolve(rel)
	}
	resized, err := h.Processor.FitWithin(path, h.MaxWidth, h.MaxHeight)
	if err != nil {
		log.Printf("%s image resize failed for %s: %v", kind, rel, err)
		return
	}
	if resized {
		log.Printf("%s image %s resized to fit %dx%d", kind, rel, h.MaxWidth, h.MaxHeight)
	}
}
