package printing

import (
	"fmt"
)

// PaperSize is a supported receipt paper size
type PaperSize string

const (
	PaperSizeA4 PaperSize = "A4"
	PaperSizeA5 PaperSize = "A5"
	// PaperSizeReceipt80 is 80mm thermal roll paper
	PaperSizeReceipt80 PaperSize = "RECEIPT_80MM"
)

// ParsePaperSize validates a configured paper size. Empty means A5.
func ParsePaperSize(s string) (PaperSize, error) {
	switch p := PaperSize(s); p {
	case "":
		return PaperSizeA5, nil
	case PaperSizeA4, PaperSizeA5, PaperSizeReceipt80:
		return p, nil
	default:
		return "", fmt.Errorf("unknown paper size %q", s)
	}
}

// Dimensions returns width and height in millimetres.
// Roll paper has no fixed height; it reports a page tall enough for one receipt.
func (p PaperSize) Dimensions() (width, height float64) {
	switch p {
	case PaperSizeA4:
		return 210, 297
	case PaperSizeReceipt80:
		return 80, 600
	default:
		return 148, 210
	}
}

// RenderError is a failure while producing a receipt document
type RenderError struct {
	Code    string
	Message string
	Cause   error
}

func (e *RenderError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *RenderError) Unwrap() error {
	return e.Cause
}

// Render error codes
const (
	ErrCodeRenderTimeout = "RENDER_TIMEOUT"
	ErrCodeRenderFailed  = "RENDER_FAILED"
	ErrCodeInvalidHTML   = "INVALID_HTML"
)

// NewRenderError creates a new RenderError
func NewRenderError(code, message string, cause error) *RenderError {
	return &RenderError{Code: code, Message: message, Cause: cause}
}
