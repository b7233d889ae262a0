package service

import (
	"fmt"
	"slices"
	"time"

	"github.com/Aashish23092/runlog-ocr/dto"
	"github.com/google/uuid"
)

// State is a step of the submission state machine.
type State string

const (
	StateAwaitingImage       State = "AWAITING_IMAGE"
	StateExtracting          State = "EXTRACTING"
	StateExtractionEmpty     State = "EXTRACTION_EMPTY"
	StateCandidatesFound     State = "CANDIDATES_FOUND"
	StateAwaitingSelection   State = "AWAITING_SELECTION"
	StateResolvingCoordinate State = "RESOLVING_COORDINATE"
	StateWriteSuccess        State = "WRITE_SUCCESS"
	StateWriteFailed         State = "WRITE_FAILED"
	StateUserNotSelected     State = "USER_NOT_SELECTED"
)

var transitions = map[State][]State{
	StateAwaitingImage:       {StateExtracting},
	StateExtracting:          {StateExtractionEmpty, StateCandidatesFound},
	StateCandidatesFound:     {StateAwaitingSelection, StateResolvingCoordinate, StateUserNotSelected},
	StateAwaitingSelection:   {StateResolvingCoordinate, StateUserNotSelected},
	StateResolvingCoordinate: {StateWriteSuccess, StateWriteFailed},
}

// Terminal reports whether no transition leaves s.
func (s State) Terminal() bool {
	return len(transitions[s]) == 0
}

// CanTransition reports whether from -> to is an edge of the state machine.
func CanTransition(from, to State) bool {
	return slices.Contains(transitions[from], to)
}

// Submission is one upload travelling through the state machine.
type Submission struct {
	ID         string
	State      State
	Mode       dto.ExtractionMode
	Policy     dto.SelectionPolicy
	Date       dto.Date
	Candidates []dto.DistanceCandidate
	Selected   *dto.DistanceCandidate
	Coordinate *dto.SheetCoordinate
	Report     *dto.WriteReport
	Err        error
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func newSubmission(mode dto.ExtractionMode, policy dto.SelectionPolicy, date dto.Date, now time.Time) *Submission {
	return &Submission{
		ID:        uuid.NewString(),
		State:     StateAwaitingImage,
		Mode:      mode,
		Policy:    policy,
		Date:      date,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (s *Submission) transition(to State, now time.Time) error {
	if !CanTransition(s.State, to) {
		return fmt.Errorf("%w: %s -> %s", dto.ErrInvalidTransition, s.State, to)
	}
	s.State = to
	s.UpdatedAt = now
	return nil
}

// Response renders the submission for API clients.
func (s *Submission) Response() dto.SubmissionResponse {
	resp := dto.SubmissionResponse{
		SubmissionID: s.ID,
		State:        string(s.State),
		Mode:         s.Mode,
		Policy:       s.Policy,
		Candidates:   s.Candidates,
		Selected:     s.Selected,
		Coordinate:   s.Coordinate,
		Report:       s.Report,
		ProcessedAt:  s.UpdatedAt.Format(time.RFC3339),
	}
	if resp.Candidates == nil {
		resp.Candidates = []dto.DistanceCandidate{}
	}
	if s.Err != nil {
		resp.ErrorCode = dto.ErrorCode(s.Err)
		resp.Message = s.Err.Error()
	}
	return resp
}
