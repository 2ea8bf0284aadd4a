// Package document defines the core data model shared by the ingestion and
// query paths: parsed documents, typed page regions, and the token-bounded
// chunks produced for embedding. Chunk IDs are deterministic so reprocessing
// an unchanged document yields byte-identical IDs (idempotent re-indexing).
package document

import (
	"crypto/sha256"
	"fmt"
)

// RegionType classifies a spatial region of a page.
type RegionType string

const (
	// RegionText is a plain text block.
	RegionText RegionType = "text"
	// RegionImage is an embedded image (diagram, chart, photo).
	RegionImage RegionType = "image"
	// RegionTable is a structured table.
	RegionTable RegionType = "table"
)

// ChunkType classifies a chunk for collection routing and embedding.
type ChunkType string

const (
	// ChunkText is a chunk produced from a text region.
	ChunkText ChunkType = "text"
	// ChunkImage is a chunk produced from an image description alone.
	ChunkImage ChunkType = "image"
	// ChunkTable is a chunk produced from a structured table.
	ChunkTable ChunkType = "table"
	// ChunkComposite is a chunk carrying both text and visual content,
	// embedded with a fused text+visual vector.
	ChunkComposite ChunkType = "composite"
)

// BBox is a bounding box in page coordinates. For line-oriented documents
// Y maps to line numbers and X to column offsets; the units only need to be
// consistent within a page.
type BBox struct {
	// X0 is the left edge.
	X0 float64
	// Y0 is the top edge.
	Y0 float64
	// X1 is the right edge (exclusive).
	X1 float64
	// Y1 is the bottom edge (exclusive).
	Y1 float64
}

// Intersects reports whether b and o overlap in both axes.
func (b BBox) Intersects(o BBox) bool {
	return b.X0 < o.X1 && o.X0 < b.X1 && b.Y0 < o.Y1 && o.Y0 < b.Y1
}

// Block is a contiguous piece of raw page content produced by the loader.
// Kind discriminates which fields are meaningful: Lines for text and table
// blocks, ImageRef/ImageData for image blocks.
type Block struct {
	// Kind discriminates the block variant.
	Kind RegionType
	// BBox is the block's position on the page.
	BBox BBox
	// Confidence is the loader's detection confidence in [0,1].
	Confidence float64
	// Lines holds the raw source lines (text and table blocks).
	Lines []string
	// ImageRef is the original reference of an image block (path or URL).
	ImageRef string
	// AltText is the alternative text attached to an image block.
	AltText string
	// ImageData holds the resolved image bytes, nil when resolution failed.
	ImageData []byte
}

// Page is a single page of a parsed document.
type Page struct {
	// Number is the 1-based page number.
	Number int
	// Blocks are the raw content blocks in source order.
	Blocks []Block
}

// Document is a parsed multi-page document ready for segmentation.
type Document struct {
	// ID is the caller-assigned document identifier.
	ID string
	// Name is the human-readable source name (filename).
	Name string
	// Pages are the parsed pages in order.
	Pages []Page
}

// Region is a typed, spatially bounded area of a page, produced by the
// segmenter and consumed exactly once by the matching extractor.
type Region struct {
	// Type is the region classification after segmentation.
	Type RegionType
	// Page is the 1-based page number the region belongs to.
	Page int
	// BBox is the region's claimed area.
	BBox BBox
	// Confidence is the detection confidence in [0,1].
	Confidence float64
	// Block is the underlying raw content.
	Block *Block
}

// Table is a structurally recognised table.
type Table struct {
	// Header holds the column names. Never empty for a valid table.
	Header []string
	// Rows holds the data rows; each row has len(Header) cells.
	Rows [][]string
}

// Chunk is a token-bounded unit of content prepared for embedding and
// retrieval. Chunks never mutate after creation; a changed document produces
// new chunk IDs and the old entries are deleted.
type Chunk struct {
	// ID is the deterministic chunk identifier (see ChunkID).
	ID string
	// DocumentID is the owning document.
	DocumentID string
	// Content is the embeddable text of the chunk.
	Content string
	// Type discriminates the chunk variant.
	Type ChunkType
	// TokenCount is the estimated token count of Content.
	TokenCount int
	// Page is the 1-based page the chunk originates from.
	Page int
	// ImageData holds the source image bytes for image/composite chunks.
	ImageData []byte
	// Metadata holds arbitrary string key-value pairs carried into the index.
	Metadata map[string]string
}

// ChunkID derives the stable chunk identifier from the owning document, page,
// intra-region offset, and a hash of the content itself. The same inputs
// always produce the same ID, which makes re-indexing idempotent: unchanged
// content upserts over itself, changed content gets a fresh ID.
// The ID is formatted as a UUID so vector stores with UUID point IDs accept
// it directly.
func ChunkID(documentID string, page, offset int, content string) string {
	contentHash := sha256.Sum256([]byte(content))
	h := sha256.Sum256(fmt.Appendf(nil, "%s|%d|%d|%x", documentID, page, offset, contentHash[:8]))
	return fmt.Sprintf("%x-%x-%x-%x-%x", h[0:4], h[4:6], h[6:8], h[8:10], h[10:16])
}

// ContentHash returns the hex SHA-256 of s, used for duplicate detection and
// embedding-cache keys.
func ContentHash(s string) string {
	h := sha256.Sum256([]byte(s))
	return fmt.Sprintf("%x", h)
}
