// Package segment turns the raw blocks of a parsed page into an ordered list
// of typed regions. It resolves overlap claims (table and image regions win
// over text), sorts regions into reading order, and downgrades low-confidence
// detections to plain text rather than dropping content.
package segment

import (
	"sort"

	"github.com/54b3r/docrag-go/internal/document"
)

// DefaultConfidenceFloor is the minimum confidence for a table or image
// classification to stand. Below it the region degrades to text.
const DefaultConfidenceFloor = 0.6

// bandHeight is the vertical size of a reading-order band. Regions whose top
// edges fall within the same band are ordered left-to-right.
const bandHeight = 3.0

// Segmenter splits a page into typed regions in reading order.
type Segmenter struct {
	// ConfidenceFloor is the downgrade threshold; zero means the default.
	ConfidenceFloor float64
}

// New constructs a Segmenter with the given confidence floor (0 uses the
// default).
func New(confidenceFloor float64) *Segmenter {
	if confidenceFloor <= 0 {
		confidenceFloor = DefaultConfidenceFloor
	}
	return &Segmenter{ConfidenceFloor: confidenceFloor}
}

// Segment returns the page's regions in reading order. Table and image
// regions claim their area first; text regions overlapping a claimed area
// are clipped to the lines outside it, and dropped entirely when nothing
// remains. Detections below the confidence floor are downgraded to text when
// the block carries text lines; image blocks without lines keep their type so
// their description fallback still produces a chunk.
func (s *Segmenter) Segment(page *document.Page) []document.Region {
	var claimed []document.Region
	var textRegions []document.Region

	for i := range page.Blocks {
		block := &page.Blocks[i]
		r := document.Region{
			Type:       block.Kind,
			Page:       page.Number,
			BBox:       block.BBox,
			Confidence: block.Confidence,
			Block:      block,
		}

		switch block.Kind {
		case document.RegionTable, document.RegionImage:
			if block.Confidence < s.ConfidenceFloor && len(block.Lines) > 0 {
				// Degrade gracefully: keep the content as text. Image blocks
				// carry no text lines, so they stay images and fall through
				// to the placeholder description downstream.
				r.Type = document.RegionText
				textRegions = append(textRegions, r)
				continue
			}
			claimed = append(claimed, r)
		default:
			textRegions = append(textRegions, r)
		}
	}

	regions := claimed
	for _, tr := range textRegions {
		if clipped, ok := clipText(tr, claimed); ok {
			regions = append(regions, clipped)
		}
	}

	sortReadingOrder(regions)
	return regions
}

// clipText removes the portion of a text region claimed by a table or image
// region. Clipping is vertical: lines inside a claimed Y range are cut from
// the text block. Returns false when no content survives.
func clipText(tr document.Region, claimed []document.Region) (document.Region, bool) {
	overlaps := false
	for _, c := range claimed {
		if tr.BBox.Intersects(c.BBox) {
			overlaps = true
			break
		}
	}
	if !overlaps {
		return tr, true
	}

	var kept []string
	top := tr.BBox.Y0
	keptTop, keptBottom := -1.0, -1.0
	for i, line := range tr.Block.Lines {
		y := top + float64(i)
		if lineClaimed(y, tr.BBox, claimed) {
			continue
		}
		if keptTop < 0 {
			keptTop = y
		}
		keptBottom = y + 1
		kept = append(kept, line)
	}
	if len(kept) == 0 {
		return tr, false
	}

	clippedBlock := *tr.Block
	clippedBlock.Lines = kept
	clippedBlock.BBox.Y0 = keptTop
	clippedBlock.BBox.Y1 = keptBottom
	tr.Block = &clippedBlock
	tr.BBox = clippedBlock.BBox
	return tr, true
}

// lineClaimed reports whether the horizontal strip at y within bbox lies
// inside any claimed region.
func lineClaimed(y float64, bbox document.BBox, claimed []document.Region) bool {
	strip := document.BBox{X0: bbox.X0, Y0: y, X1: bbox.X1, Y1: y + 1}
	for _, c := range claimed {
		if strip.Intersects(c.BBox) {
			return true
		}
	}
	return false
}

// typePrecedence orders region types within a reading-order band:
// table before image before text.
func typePrecedence(t document.RegionType) int {
	switch t {
	case document.RegionTable:
		return 0
	case document.RegionImage:
		return 1
	default:
		return 2
	}
}

// sortReadingOrder sorts regions top-to-bottom by band, then left-to-right,
// with ties broken by type precedence.
func sortReadingOrder(regions []document.Region) {
	sort.SliceStable(regions, func(i, j int) bool {
		bi := int(regions[i].BBox.Y0 / bandHeight)
		bj := int(regions[j].BBox.Y0 / bandHeight)
		if bi != bj {
			return bi < bj
		}
		if regions[i].BBox.X0 != regions[j].BBox.X0 {
			return regions[i].BBox.X0 < regions[j].BBox.X0
		}
		return typePrecedence(regions[i].Type) < typePrecedence(regions[j].Type)
	})
}
