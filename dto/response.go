package dto

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

type RosterResponse struct {
	Sheet string   `json:"sheet"`
	Users []string `json:"users"`
}

type SessionResponse struct {
	SessionID string   `json:"session_id"`
	Sheet     string   `json:"sheet"`
	UserID    string   `json:"user_id,omitempty"`
	Users     []string `json:"users"`
	Warning   string   `json:"warning,omitempty"`
}

// WriteReport describes a successful cell write.
type WriteReport struct {
	UserID string `json:"user_id"`
	Date   string `json:"date"`
	Value  string `json:"value"`
	Row    int    `json:"row"`
	Column int    `json:"column"`
	Day    int    `json:"day"`
}

type SubmissionResponse struct {
	SubmissionID string              `json:"submission_id"`
	State        string              `json:"state"`
	Mode         ExtractionMode      `json:"mode"`
	Policy       SelectionPolicy     `json:"policy"`
	Candidates   []DistanceCandidate `json:"candidates"`
	Selected     *DistanceCandidate  `json:"selected,omitempty"`
	Coordinate   *SheetCoordinate    `json:"coordinate,omitempty"`
	Report       *WriteReport        `json:"report,omitempty"`
	ErrorCode    string              `json:"error_code,omitempty"`
	Message      string              `json:"message,omitempty"`
	ProcessedAt  string              `json:"processed_at"`
}
