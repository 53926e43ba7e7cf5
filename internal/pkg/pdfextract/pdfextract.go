package pdfextract

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/ledongthuc/pdf"
)

// ErrExtract marks a document that is missing or cannot be parsed.
var ErrExtract = errors.New("extract pdf text failed")

// ExtractFile opens the PDF at path and returns its plain text.
func ExtractFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrExtract, err)
	}
	defer f.Close()
	return ExtractText(f)
}

// ExtractText reads the entire content of r and extracts plain text from the PDF.
// Pages are concatenated in document order with no added separator.
// A valid PDF without extractable text returns "" and a nil error; empty input
// is not a PDF and returns ErrExtract.
func ExtractText(r io.Reader) (string, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrExtract, err)
	}
	if len(b) == 0 {
		return "", fmt.Errorf("%w: empty document", ErrExtract)
	}
	readerAt := bytes.NewReader(b)
	pdfReader, err := pdf.NewReader(readerAt, int64(len(b)))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrExtract, err)
	}
	plainReader, err := pdfReader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrExtract, err)
	}
	out, err := io.ReadAll(plainReader)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrExtract, err)
	}
	return string(out), nil
}
