package document

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// BlobStore resolves binary assets referenced by a document (image bytes).
// It is the narrow object-storage contract of this core; implementations may
// be backed by a local filesystem, an object store, or test fixtures.
type BlobStore interface {
	// Get returns the bytes for the given reference.
	Get(ctx context.Context, ref string) ([]byte, error)
}

// FSBlobStore resolves references relative to a root directory.
type FSBlobStore struct {
	// Root is the directory references are resolved against.
	Root string
}

// Get reads the referenced file from disk. References escaping the root are
// rejected.
func (s *FSBlobStore) Get(_ context.Context, ref string) ([]byte, error) {
	path := filepath.Join(s.Root, filepath.Clean("/"+ref))
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("document: read blob %s: %w", ref, err)
	}
	return data, nil
}

// MemBlobStore is an in-memory BlobStore for tests and pre-resolved assets.
type MemBlobStore map[string][]byte

// Get returns the stored bytes for ref.
func (s MemBlobStore) Get(_ context.Context, ref string) ([]byte, error) {
	data, ok := s[ref]
	if !ok {
		return nil, fmt.Errorf("document: blob %s not found", ref)
	}
	return data, nil
}

// imageRefPattern matches a markdown-style image reference occupying its own
// line: ![alt text](path/to/image.png)
var imageRefPattern = regexp.MustCompile(`^!\[([^\]]*)\]\(([^)]+)\)\s*$`)

// Load parses a page-oriented document byte stream into the Document model.
// Pages are separated by form-feed characters; within a page, consecutive
// tabular lines form table blocks, markdown image references form image
// blocks, and everything else forms text blocks separated by blank lines.
// Image bytes are resolved through blobs; resolution failures leave
// Block.ImageData nil and are surfaced later as extraction fallbacks, never
// as load errors.
func Load(ctx context.Context, id, name string, data []byte, blobs BlobStore) (*Document, error) {
	if id == "" {
		return nil, fmt.Errorf("document: id must not be empty")
	}

	doc := &Document{ID: id, Name: name}
	for i, pageText := range strings.Split(string(data), "\f") {
		page := parsePage(ctx, i+1, pageText, blobs)
		doc.Pages = append(doc.Pages, page)
	}
	return doc, nil
}

// LoadFile reads and parses a document from disk, resolving image references
// relative to the file's directory.
func LoadFile(ctx context.Context, id, path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("document: read %s: %w", path, err)
	}
	blobs := &FSBlobStore{Root: filepath.Dir(path)}
	return Load(ctx, id, filepath.Base(path), data, blobs)
}

// parsePage scans a page's lines and groups them into typed blocks.
func parsePage(ctx context.Context, number int, text string, blobs BlobStore) Page {
	page := Page{Number: number}

	var lines []string
	sc := bufio.NewScanner(strings.NewReader(text))
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}

	var textRun []string
	textStart := 0
	flushText := func(end int) {
		trimmed := trimBlankRun(textRun)
		if len(trimmed) > 0 {
			page.Blocks = append(page.Blocks, textBlock(trimmed, textStart, end))
		}
		textRun = nil
	}

	for i := 0; i < len(lines); i++ {
		line := lines[i]

		if m := imageRefPattern.FindStringSubmatch(strings.TrimSpace(line)); m != nil {
			flushText(i)
			page.Blocks = append(page.Blocks, imageBlock(ctx, m[1], m[2], i, blobs))
			textStart = i + 1
			continue
		}

		if isTabular(line) {
			// Gather the whole run of tabular lines.
			j := i
			for j < len(lines) && isTabular(lines[j]) {
				j++
			}
			if j-i >= 2 {
				flushText(i)
				page.Blocks = append(page.Blocks, tableBlock(lines[i:j], i))
				textStart = j
				i = j - 1
				continue
			}
			// A lone tabular-looking line is ordinary text.
		}

		if strings.TrimSpace(line) == "" && len(textRun) > 0 {
			flushText(i)
			textStart = i + 1
			continue
		}
		if len(textRun) == 0 {
			textStart = i
		}
		textRun = append(textRun, line)
	}
	flushText(len(lines))

	return page
}

// isTabular reports whether a line looks like a table row: at least two pipe
// separators or at least one tab.
func isTabular(line string) bool {
	return strings.Count(line, "|") >= 2 || strings.Contains(line, "\t")
}

// trimBlankRun removes leading and trailing blank lines from a run.
func trimBlankRun(run []string) []string {
	for len(run) > 0 && strings.TrimSpace(run[0]) == "" {
		run = run[1:]
	}
	for len(run) > 0 && strings.TrimSpace(run[len(run)-1]) == "" {
		run = run[:len(run)-1]
	}
	return run
}

// textBlock builds a text Block spanning lines [start,end).
func textBlock(run []string, start, end int) Block {
	return Block{
		Kind:       RegionText,
		BBox:       lineBBox(run, start, end),
		Confidence: 0.95,
		Lines:      run,
	}
}

// tableBlock builds a table Block. Confidence reflects how consistent the
// cell counts are across rows — ragged pseudo-tables score lower and may be
// downgraded to text by the segmenter.
func tableBlock(run []string, start int) Block {
	counts := make(map[int]int)
	for _, line := range run {
		counts[strings.Count(line, "|")+strings.Count(line, "\t")]++
	}
	best := 0
	for _, n := range counts {
		if n > best {
			best = n
		}
	}
	confidence := float64(best) / float64(len(run))

	return Block{
		Kind:       RegionTable,
		BBox:       lineBBox(run, start, start+len(run)),
		Confidence: confidence,
		Lines:      run,
	}
}

// imageBlock builds an image Block, resolving bytes through the BlobStore.
func imageBlock(ctx context.Context, alt, ref string, line int, blobs BlobStore) Block {
	b := Block{
		Kind:       RegionImage,
		BBox:       BBox{X0: 0, Y0: float64(line), X1: 80, Y1: float64(line + 1)},
		Confidence: 0.9,
		ImageRef:   ref,
		AltText:    alt,
	}
	if blobs != nil {
		if data, err := blobs.Get(ctx, ref); err == nil {
			b.ImageData = data
		} else {
			b.Confidence = 0.5
		}
	} else {
		b.Confidence = 0.5
	}
	return b
}

// lineBBox derives a bounding box from a run of lines: Y spans the line
// range, X spans from the minimum indent to the maximum line width.
func lineBBox(run []string, start, end int) BBox {
	minIndent := -1
	maxWidth := 0
	for _, line := range run {
		if strings.TrimSpace(line) == "" {
			continue
		}
		indent := len(line) - len(strings.TrimLeft(line, " \t"))
		if minIndent < 0 || indent < minIndent {
			minIndent = indent
		}
		if len(line) > maxWidth {
			maxWidth = len(line)
		}
	}
	if minIndent < 0 {
		minIndent = 0
	}
	return BBox{X0: float64(minIndent), Y0: float64(start), X1: float64(maxWidth), Y1: float64(end)}
}
