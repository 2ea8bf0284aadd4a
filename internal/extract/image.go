package extract

import (
	"context"

	"github.com/54b3r/docrag-go/internal/document"
	"github.com/54b3r/docrag-go/internal/vision"
)

// ImageExtractor hands image regions to the vision-description capability.
// It never fails a document: missing bytes or an exhausted provider chain
// both fall back to the placeholder description.
type ImageExtractor struct {
	// describer is the vision capability, usually a fallback chain.
	describer vision.Describer
}

// NewImageExtractor constructs an ImageExtractor over the given describer.
func NewImageExtractor(describer vision.Describer) *ImageExtractor {
	return &ImageExtractor{describer: describer}
}

// Extract returns the description for an image region. When the region's
// bytes could not be resolved, or description fails outright, the placeholder
// is returned; the region's alt text is kept as the short form when present.
func (e *ImageExtractor) Extract(ctx context.Context, region *document.Region) (vision.Description, error) {
	if len(region.Block.ImageData) == 0 {
		return withAltText(vision.Placeholder(), region), nil
	}

	desc, err := e.describer.Describe(ctx, region.Block.ImageData)
	if err != nil {
		// Only cancellation propagates; provider failures already degraded
		// to the placeholder inside the chain.
		return vision.Description{}, err
	}
	return withAltText(desc, region), nil
}

// withAltText fills a missing or placeholder short form from the region's
// alt text so even undescribed images stay findable by their label.
func withAltText(desc vision.Description, region *document.Region) vision.Description {
	alt := region.Block.AltText
	if alt == "" {
		return desc
	}
	if desc.Short == vision.PlaceholderText {
		desc.Short = alt
		desc.Long = alt + " (" + vision.PlaceholderText + ")"
	}
	return desc
}
