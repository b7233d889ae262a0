package dto

import "errors"

// Submission errors. All of them end the current submission attempt and
// can be retried by the user; none of them is a programming fault.
var (
	ErrRecognitionFailed          = errors.New("text recognition failed")
	ErrNoCandidateFound           = errors.New("no distance candidate found")
	ErrAmbiguousCandidates        = errors.New("multiple distance candidates found")
	ErrUserNotFound               = errors.New("user not found in roster")
	ErrInvalidDate                = errors.New("date outside of sheet month")
	ErrSheetNotFound              = errors.New("month sheet not found")
	ErrStoreWriteFailed           = errors.New("failed to write log entry")
	ErrSelectionNotInCandidateSet = errors.New("selection is not one of the extracted candidates")
	ErrUserNotSelected            = errors.New("no user selected for this session")

	ErrSessionNotFound    = errors.New("session not found or expired")
	ErrSubmissionNotFound = errors.New("submission not found")
	ErrUnsupportedFile    = errors.New("unsupported file type")
	ErrInvalidTransition  = errors.New("invalid submission state transition")
)

var errorCodes = []struct {
	err  error
	code string
}{
	{ErrRecognitionFailed, "RECOGNITION_FAILED"},
	{ErrNoCandidateFound, "NO_CANDIDATE_FOUND"},
	{ErrAmbiguousCandidates, "AMBIGUOUS_CANDIDATES"},
	{ErrUserNotFound, "USER_NOT_FOUND"},
	{ErrInvalidDate, "INVALID_DATE"},
	{ErrSheetNotFound, "SHEET_NOT_FOUND"},
	{ErrStoreWriteFailed, "STORE_WRITE_FAILED"},
	{ErrSelectionNotInCandidateSet, "SELECTION_NOT_IN_CANDIDATE_SET"},
	{ErrUserNotSelected, "USER_NOT_SELECTED"},
	{ErrSessionNotFound, "SESSION_NOT_FOUND"},
	{ErrSubmissionNotFound, "SUBMISSION_NOT_FOUND"},
	{ErrUnsupportedFile, "UNSUPPORTED_FILE"},
	{ErrInvalidTransition, "INVALID_TRANSITION"},
}

// ErrorCode returns the stable code of the first known error in err's
// chain, or "INTERNAL" when none matches.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}
	for _, ec := range errorCodes {
		if errors.Is(err, ec.err) {
			return ec.code
		}
	}
	return "INTERNAL"
}
