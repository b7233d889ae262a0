package dto

// BoundingBox is the approximate pixel region a fragment was read from.
type BoundingBox struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// RecognizedFragment is one span of text returned by an OCR engine.
// Confidence is normalised to [0,1]; Region is nil when the engine
// does not report geometry.
type RecognizedFragment struct {
	Text       string       `json:"text"`
	Confidence float64      `json:"confidence"`
	Region     *BoundingBox `json:"region,omitempty"`
}

// ClampConfidence forces an engine score into [0,1].
func ClampConfidence(c float64) float64 {
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}
