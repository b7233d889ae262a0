package client

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Aashish23092/runlog-ocr/dto"
	"github.com/otiai10/gosseract/v2"
)

// TesseractClient recognizes text lines with a local Tesseract install.
type TesseractClient struct {
	dataPath   string
	language   string
	preprocess bool
	logger     *slog.Logger
}

func NewTesseractClient(dataPath, language string, preprocess bool, logger *slog.Logger) *TesseractClient {
	if language == "" {
		language = "eng"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TesseractClient{
		dataPath:   dataPath,
		language:   language,
		preprocess: preprocess,
		logger:     logger,
	}
}

// Recognize returns one fragment per text line in reading order.
func (tc *TesseractClient) Recognize(ctx context.Context, image []byte) ([]dto.RecognizedFragment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if tc.preprocess {
		prepared, err := Preprocess(image)
		if err != nil {
			tc.logger.Warn("image preprocessing failed, using original", "error", err)
		} else {
			image = prepared
		}
	}

	client := gosseract.NewClient()
	defer client.Close()

	if tc.dataPath != "" {
		if err := client.SetTessdataPrefix(tc.dataPath); err != nil {
			return nil, fmt.Errorf("failed to set tessdata prefix: %w", err)
		}
	}
	if err := client.SetLanguage(strings.Split(tc.language, "+")...); err != nil {
		return nil, fmt.Errorf("failed to set language: %w", err)
	}
	if err := client.SetImageFromBytes(image); err != nil {
		return nil, fmt.Errorf("failed to set image: %w", err)
	}

	boxes, err := client.GetBoundingBoxes(gosseract.RIL_TEXTLINE)
	if err == nil && len(boxes) > 0 {
		return boxesToFragments(boxes), nil
	}
	if err != nil {
		tc.logger.Debug("bounding boxes unavailable, falling back to plain text", "error", err)
	}

	// Plain text has no per-line confidence.
	text, err := client.Text()
	if err != nil {
		return nil, fmt.Errorf("failed to extract text: %w", err)
	}
	return linesToFragments(text, 0), nil
}

// boxesToFragments maps Tesseract text lines to fragments. Tesseract
// reports confidence in percent.
func boxesToFragments(boxes []gosseract.BoundingBox) []dto.RecognizedFragment {
	frags := make([]dto.RecognizedFragment, 0, len(boxes))
	for _, box := range boxes {
		text := strings.TrimSpace(box.Word)
		if text == "" {
			continue
		}
		r := box.Box
		frags = append(frags, dto.RecognizedFragment{
			Text:       text,
			Confidence: dto.ClampConfidence(box.Confidence / 100),
			Region:     &dto.BoundingBox{X: r.Min.X, Y: r.Min.Y, Width: r.Dx(), Height: r.Dy()},
		})
	}
	return frags
}

// linesToFragments splits text into one fragment per non-blank line.
func linesToFragments(text string, confidence float64) []dto.RecognizedFragment {
	var frags []dto.RecognizedFragment
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		frags = append(frags, dto.RecognizedFragment{Text: line, Confidence: dto.ClampConfidence(confidence)})
	}
	return frags
}
