package service

import (
	"bytes"
	"context"
	"fmt"
	"image/png"
	"log/slog"
	"strings"

	"github.com/Aashish23092/runlog-ocr/dto"
)

// TextRecognizer is the OCR collaborator: image bytes in, fragments out.
type TextRecognizer interface {
	Recognize(ctx context.Context, image []byte) ([]dto.RecognizedFragment, error)
}

// minPDFTextLength is the text layer size below which a PDF is treated
// as scanned and its images are sent through OCR.
const minPDFTextLength = 20

// DocumentRecognizer routes uploads to OCR or to PDF text extraction.
type DocumentRecognizer struct {
	ocr    TextRecognizer
	pdf    PDFProcessor
	logger *slog.Logger
}

func NewDocumentRecognizer(ocr TextRecognizer, pdf PDFProcessor, logger *slog.Logger) *DocumentRecognizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &DocumentRecognizer{ocr: ocr, pdf: pdf, logger: logger}
}

// Recognize returns the fragments of an upload. Every failure is wrapped
// in dto.ErrRecognitionFailed.
func (r *DocumentRecognizer) Recognize(ctx context.Context, contentType string, data []byte) ([]dto.RecognizedFragment, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty upload", dto.ErrRecognitionFailed)
	}
	if contentType == "application/pdf" {
		return r.recognizePDF(ctx, data)
	}
	if r.ocr == nil {
		return nil, fmt.Errorf("%w: no OCR engine configured", dto.ErrRecognitionFailed)
	}
	frags, err := r.ocr.Recognize(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", dto.ErrRecognitionFailed, err)
	}
	return frags, nil
}

func (r *DocumentRecognizer) recognizePDF(ctx context.Context, data []byte) ([]dto.RecognizedFragment, error) {
	if r.pdf == nil {
		return nil, fmt.Errorf("%w: pdf uploads are disabled", dto.ErrUnsupportedFile)
	}

	frags, err := r.pdf.ExtractFragments(data)
	if err != nil {
		r.logger.Warn("pdf text extraction failed", "error", err)
	}
	if textLength(frags) >= minPDFTextLength {
		return frags, nil
	}

	r.logger.Info("pdf has little text, falling back to image OCR", "text_length", textLength(frags))
	if r.ocr == nil {
		return nil, fmt.Errorf("%w: scanned pdf needs an OCR engine", dto.ErrRecognitionFailed)
	}
	images, err := r.pdf.ExtractImages(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", dto.ErrRecognitionFailed, err)
	}

	var out []dto.RecognizedFragment
	for i, img := range images {
		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			r.logger.Warn("failed to encode pdf image", "index", i, "error", err)
			continue
		}
		pageFrags, err := r.ocr.Recognize(ctx, buf.Bytes())
		if err != nil {
			r.logger.Warn("OCR failed for pdf image", "index", i, "error", err)
			continue
		}
		out = append(out, pageFrags...)
	}
	if len(out) == 0 && len(frags) == 0 {
		return nil, fmt.Errorf("%w: no text found in pdf", dto.ErrRecognitionFailed)
	}
	return append(frags, out...), nil
}

func textLength(frags []dto.RecognizedFragment) int {
	n := 0
	for _, f := range frags {
		n += len(strings.TrimSpace(f.Text))
	}
	return n
}
