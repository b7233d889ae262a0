package client

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/Aashish23092/runlog-ocr/dto"
	"google.golang.org/api/option"
	vision "google.golang.org/api/vision/v1"
)

// VisionClient recognizes text with the Cloud Vision TEXT_DETECTION feature.
type VisionClient struct {
	svc           *vision.Service
	languageHints []string
}

func NewVisionClient(ctx context.Context, languageHints []string, opts ...option.ClientOption) (*VisionClient, error) {
	svc, err := vision.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create vision service: %w", err)
	}
	return &VisionClient{svc: svc, languageHints: languageHints}, nil
}

// Recognize returns one fragment per detected text line.
func (vc *VisionClient) Recognize(ctx context.Context, image []byte) ([]dto.RecognizedFragment, error) {
	req := &vision.AnnotateImageRequest{
		Image:    &vision.Image{Content: base64.StdEncoding.EncodeToString(image)},
		Features: []*vision.Feature{{Type: "TEXT_DETECTION"}},
	}
	if len(vc.languageHints) > 0 {
		req.ImageContext = &vision.ImageContext{LanguageHints: vc.languageHints}
	}

	batch, err := vc.svc.Images.Annotate(&vision.BatchAnnotateImagesRequest{
		Requests: []*vision.AnnotateImageRequest{req},
	}).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("vision annotate failed: %w", err)
	}
	if len(batch.Responses) == 0 {
		return nil, fmt.Errorf("vision returned no responses")
	}
	resp := batch.Responses[0]
	if resp.Error != nil && resp.Error.Code != 0 {
		return nil, fmt.Errorf("vision error %d: %s", resp.Error.Code, resp.Error.Message)
	}

	if frags := fullTextFragments(resp.FullTextAnnotation); len(frags) > 0 {
		return frags, nil
	}
	if len(resp.TextAnnotations) > 0 {
		// The first annotation holds the whole text without scores.
		return linesToFragments(resp.TextAnnotations[0].Description, 0), nil
	}
	return nil, nil
}

// fullTextFragments walks pages, blocks and paragraphs and cuts a fragment
// at every detected line break.
func fullTextFragments(ann *vision.TextAnnotation) []dto.RecognizedFragment {
	if ann == nil {
		return nil
	}
	var frags []dto.RecognizedFragment
	for _, page := range ann.Pages {
		for _, block := range page.Blocks {
			for _, para := range block.Paragraphs {
				region := boxOf(para.BoundingBox)
				var line strings.Builder
				flush := func() {
					text := strings.TrimSpace(line.String())
					line.Reset()
					if text == "" {
						return
					}
					frags = append(frags, dto.RecognizedFragment{
						Text:       text,
						Confidence: dto.ClampConfidence(para.Confidence),
						Region:     region,
					})
				}
				for _, word := range para.Words {
					for _, sym := range word.Symbols {
						line.WriteString(sym.Text)
						switch breakType(sym) {
						case "SPACE", "SURE_SPACE":
							line.WriteByte(' ')
						case "EOL_SURE_SPACE", "LINE_BREAK":
							flush()
						}
					}
				}
				flush()
			}
		}
	}
	return frags
}

func breakType(sym *vision.Symbol) string {
	if sym.Property == nil || sym.Property.DetectedBreak == nil {
		return ""
	}
	return sym.Property.DetectedBreak.Type
}

func boxOf(poly *vision.BoundingPoly) *dto.BoundingBox {
	if poly == nil || len(poly.Vertices) == 0 {
		return nil
	}
	minX, minY := poly.Vertices[0].X, poly.Vertices[0].Y
	maxX, maxY := minX, minY
	for _, v := range poly.Vertices[1:] {
		minX, maxX = min(minX, v.X), max(maxX, v.X)
		minY, maxY = min(minY, v.Y), max(maxY, v.Y)
	}
	return &dto.BoundingBox{X: int(minX), Y: int(minY), Width: int(maxX - minX), Height: int(maxY - minY)}
}
