package ocr

import (
	"bytes"
	"context"
	"fmt"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/gen2brain/go-fitz"
)

// pageSeparator joins per-page OCR text for multi-page PDFs.
const pageSeparator = "\n\n"

// Engine performs text recognition on a single image.
type Engine interface {
	// Recognize returns the text found in the image bytes.
	Recognize(ctx context.Context, image []byte) (string, error)
}

// Extractor turns a receipt file (image or PDF) into raw text.
type Extractor struct {
	engine Engine
}

// NewExtractor creates an Extractor backed by the given OCR engine.
func NewExtractor(engine Engine) *Extractor {
	return &Extractor{engine: engine}
}

// ExtractFile reads the file at path and returns its recognized text. Images
// are recognized in a single pass; PDFs page by page in page order. Files with
// an extension outside jpg/jpeg/png/pdf are rejected up front.
func (e *Extractor) ExtractFile(ctx context.Context, path string) (string, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	switch ext {
	case "jpg", "jpeg", "png":
		return e.extractImage(ctx, path)
	case "pdf":
		return e.extractPDF(ctx, path)
	default:
		return "", &UnsupportedFormatError{Ext: ext}
	}
}

func (e *Extractor) extractImage(ctx context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", &ExtractionError{Path: path, Err: fmt.Errorf("reading file: %w", err)}
	}

	text, err := e.engine.Recognize(ctx, data)
	if err != nil {
		return "", &ExtractionError{Path: path, Err: err}
	}
	return text, nil
}

func (e *Extractor) extractPDF(ctx context.Context, path string) (string, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return "", &ExtractionError{Path: path, Err: fmt.Errorf("opening PDF: %w", err)}
	}
	defer doc.Close()

	pages := make([]string, 0, doc.NumPage())
	for n := 0; n < doc.NumPage(); n++ {
		img, err := doc.Image(n)
		if err != nil {
			return "", &ExtractionError{Path: path, Err: fmt.Errorf("rendering PDF page %d: %w", n+1, err)}
		}

		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			return "", &ExtractionError{Path: path, Err: fmt.Errorf("encoding PDF page %d: %w", n+1, err)}
		}

		text, err := e.engine.Recognize(ctx, buf.Bytes())
		if err != nil {
			return "", &ExtractionError{Path: path, Err: fmt.Errorf("recognizing PDF page %d: %w", n+1, err)}
		}
		pages = append(pages, text)
	}

	return strings.Join(pages, pageSeparator), nil
}
