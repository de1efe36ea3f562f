package ocr

import "fmt"

// UnsupportedFormatError is returned when a file extension is outside the
// supported set (jpg, jpeg, png, pdf).
type UnsupportedFormatError struct {
	Ext string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported file format %q (supported: jpg, jpeg, png, pdf)", e.Ext)
}

// ExtractionError wraps a failure of the underlying OCR engine or of reading
// the source file.
type ExtractionError struct {
	Path string
	Err  error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extracting text from %s: %v", e.Path, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}
