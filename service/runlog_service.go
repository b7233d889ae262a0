package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Aashish23092/runlog-ocr/dto"
	"github.com/Aashish23092/runlog-ocr/observe"
	"github.com/Aashish23092/runlog-ocr/utils"
)

// LogStore is the spreadsheet collaborator. sheetID is the month label
// of a worksheet; rows and columns are 1-based.
type LogStore interface {
	HasSheet(ctx context.Context, sheetID string) (bool, error)
	ReadColumn(ctx context.Context, sheetID string, column int) ([]string, error)
	FindRow(ctx context.Context, sheetID string, column int, value string) (int, bool, error)
	WriteCell(ctx context.Context, sheetID string, row, column int, value string) error
}

// Options holds the sheet layout and default submission behaviour.
type Options struct {
	SheetLabelLayout string
	RosterColumn     int
	RosterHeaderRows int
	FixedOffset      int
	DefaultMode      dto.ExtractionMode
	DefaultPolicy    dto.SelectionPolicy
	Location         *time.Location
	// SkipClockTokens guards ANY_NUMBER extraction against times and dates.
	SkipClockTokens bool
}

// DefaultOptions matches the club sheet: users in column B under one
// header row, day 1 in column D.
func DefaultOptions() Options {
	return Options{
		SheetLabelLayout: "2006-01",
		RosterColumn:     2,
		RosterHeaderRows: 1,
		FixedOffset:      DefaultFixedOffset,
		DefaultMode:      dto.ModeUnitSuffixed,
		DefaultPolicy:    dto.PolicyPromptUser,
		Location:         time.Local,
		SkipClockTokens:  true,
	}
}

// SubmitRequest is one uploaded running-log image.
type SubmitRequest struct {
	Image       []byte
	ContentType string
	Mode        dto.ExtractionMode
	Policy      dto.SelectionPolicy
	// Date defaults to today in the configured location.
	Date *dto.Date
}

// RunLogService sequences recognition, extraction, disambiguation,
// addressing and the store write for each submission.
type RunLogService struct {
	documents     *DocumentRecognizer
	store         LogStore
	sessions      *SessionStore
	extractor     *utils.DistanceExtractor
	disambiguator *Disambiguator
	addressor     *Addressor
	observer      observe.Observer
	opts          Options
	logger        *slog.Logger
	now           func() time.Time
}

func NewRunLogService(
	documents *DocumentRecognizer,
	store LogStore,
	sessions *SessionStore,
	disambiguator *Disambiguator,
	observer observe.Observer,
	opts Options,
	logger *slog.Logger,
) *RunLogService {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if disambiguator == nil {
		disambiguator = NewDisambiguator(nil)
	}
	observer = observe.OrNop(observer)
	extractor := utils.NewDistanceExtractor(observer)
	extractor.SkipClockTokens = opts.SkipClockTokens
	return &RunLogService{
		documents:     documents,
		store:         store,
		sessions:      sessions,
		extractor:     extractor,
		disambiguator: disambiguator,
		addressor:     NewAddressor(observer),
		observer:      observer,
		opts:          opts,
		logger:        logger,
		now:           time.Now,
	}
}

// SetClock replaces the time source.
func (s *RunLogService) SetClock(now func() time.Time) {
	s.now = now
}

func (s *RunLogService) today() time.Time {
	return s.now().In(s.opts.Location)
}

// CurrentSheet returns the month and label of the sheet for today.
func (s *RunLogService) CurrentSheet() (dto.SheetMonth, string) {
	month := dto.SheetMonthOf(s.today())
	return month, month.Label(s.opts.SheetLabelLayout)
}

// LoadRoster reads the user column of the current month sheet.
func (s *RunLogService) LoadRoster(ctx context.Context) (dto.UserRoster, error) {
	month, label := s.CurrentSheet()
	ok, err := s.store.HasSheet(ctx, label)
	if err != nil {
		return dto.UserRoster{}, fmt.Errorf("check sheet %s: %w", label, err)
	}
	if !ok {
		return dto.UserRoster{}, fmt.Errorf("%w: please create a sheet named %q", dto.ErrSheetNotFound, label)
	}
	values, err := s.store.ReadColumn(ctx, label, s.opts.RosterColumn)
	if err != nil {
		return dto.UserRoster{}, fmt.Errorf("read roster of %s: %w", label, err)
	}
	roster := dto.NewUserRoster(label, month, s.opts.RosterColumn, s.opts.RosterHeaderRows, values)
	s.logger.Info("roster loaded", "sheet", label, "users", len(roster.Entries))
	return roster, nil
}

// StartSession opens a session on the current month sheet. userID may be
// empty and chosen later with SelectUser.
func (s *RunLogService) StartSession(ctx context.Context, userID string) (*Session, error) {
	roster, err := s.LoadRoster(ctx)
	if err != nil {
		return nil, err
	}
	if userID != "" {
		if _, ok := roster.RowOf(userID); !ok {
			return nil, fmt.Errorf("%w: %q", dto.ErrUserNotFound, userID)
		}
	}
	sess := newSession(roster.SheetID, roster, userID)
	s.sessions.Put(sess)
	s.logger.Info("session started", "session_id", sess.ID, "sheet", sess.SheetID, "user_id", userID)
	return sess, nil
}

func (s *RunLogService) Session(sessionID string) (*Session, error) {
	return s.sessions.Get(sessionID)
}

// SelectUser sets the session user. The user must be in the session roster.
func (s *RunLogService) SelectUser(sessionID, userID string) (*Session, error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if _, ok := sess.Roster.RowOf(userID); !ok {
		return nil, fmt.Errorf("%w: %q", dto.ErrUserNotFound, userID)
	}
	sess.UserID = userID
	return sess, nil
}

// Submission returns a copy of a submission of the session.
func (s *RunLogService) Submission(sessionID, submissionID string) (Submission, error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return Submission{}, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sub, err := sess.submission(submissionID)
	if err != nil {
		return Submission{}, err
	}
	return *sub, nil
}

// Submit runs one upload through the state machine. For a valid request
// the returned submission is non-nil and the error is the cause the
// submission stopped on, if any. An AUTO_SINGLE submission with several
// candidates waits in AWAITING_SELECTION and returns
// dto.ErrAmbiguousCandidates.
func (s *RunLogService) Submit(ctx context.Context, sessionID string, req SubmitRequest) (*Submission, error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	mode := req.Mode
	if mode == "" {
		mode = s.opts.DefaultMode
	}
	mode, err = dto.ParseExtractionMode(string(mode))
	if err != nil {
		return nil, err
	}
	policy := req.Policy
	if policy == "" {
		policy = s.opts.DefaultPolicy
	}
	policy, err = dto.ParseSelectionPolicy(string(policy))
	if err != nil {
		return nil, err
	}
	date := dto.DateOf(s.today())
	if req.Date != nil {
		date = *req.Date
	}

	sub := newSubmission(mode, policy, date, s.now())
	sess.submissions[sub.ID] = sub
	err = s.process(ctx, sess, sub, req)
	return snapshot(sub), err
}

// Select completes a submission waiting for a choice. A choice outside
// the candidate set leaves the submission waiting so it can be retried.
func (s *RunLogService) Select(ctx context.Context, sessionID, submissionID, rawMatch string) (*Submission, error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	sub, err := sess.submission(submissionID)
	if err != nil {
		return nil, err
	}
	if sub.State != StateAwaitingSelection {
		return snapshot(sub), fmt.Errorf("%w: submission is %s", dto.ErrInvalidTransition, sub.State)
	}
	chosen, err := ValidateSelection(sub.Candidates, rawMatch)
	if err != nil {
		sub.Err = err
		s.observer.Observe(ctx, observe.Event{Kind: observe.EventFailure, SubmissionID: sub.ID, Err: err})
		return snapshot(sub), err
	}
	sub.Selected = &chosen
	sub.Err = nil
	err = s.write(ctx, sess, sub)
	return snapshot(sub), err
}

// Preview recognizes and extracts without touching the store.
func (s *RunLogService) Preview(ctx context.Context, contentType string, data []byte, mode dto.ExtractionMode) ([]dto.DistanceCandidate, error) {
	if mode == "" {
		mode = s.opts.DefaultMode
	}
	mode, err := dto.ParseExtractionMode(string(mode))
	if err != nil {
		return nil, err
	}
	frags, err := s.documents.Recognize(ctx, contentType, data)
	if err != nil {
		return nil, err
	}
	return s.extractor.Extract(ctx, frags, mode)
}

func (s *RunLogService) process(ctx context.Context, sess *Session, sub *Submission, req SubmitRequest) error {
	if err := s.advance(ctx, sub, StateExtracting); err != nil {
		return err
	}

	frags, err := s.documents.Recognize(ctx, req.ContentType, req.Image)
	if err != nil {
		return s.fail(ctx, sub, StateExtractionEmpty, err)
	}
	cands, err := s.extractor.Extract(ctx, frags, sub.Mode)
	if err != nil {
		return s.fail(ctx, sub, StateExtractionEmpty, err)
	}
	if len(cands) == 0 {
		return s.fail(ctx, sub, StateExtractionEmpty, fmt.Errorf("%w in %d text fragments", dto.ErrNoCandidateFound, len(frags)))
	}
	sub.Candidates = cands
	if err := s.advance(ctx, sub, StateCandidatesFound); err != nil {
		return err
	}

	decision, err := s.disambiguator.Disambiguate(cands, sub.Policy)
	switch {
	case errors.Is(err, dto.ErrAmbiguousCandidates):
		sub.Err = err
		if aerr := s.advance(ctx, sub, StateAwaitingSelection); aerr != nil {
			return aerr
		}
		return err
	case err != nil:
		sub.Err = err
		return err
	case decision.Pending():
		return s.advance(ctx, sub, StateAwaitingSelection)
	}

	sub.Selected = decision.Selected
	return s.write(ctx, sess, sub)
}

func (s *RunLogService) write(ctx context.Context, sess *Session, sub *Submission) error {
	if sess.UserID == "" || sess.Roster.Empty() {
		return s.fail(ctx, sub, StateUserNotSelected, dto.ErrUserNotSelected)
	}
	if err := s.advance(ctx, sub, StateResolvingCoordinate); err != nil {
		return err
	}

	key := dto.LogEntryKey{UserID: sess.UserID, Date: sub.Date}
	coord, err := s.addressor.ResolveCoordinate(ctx, sess.Roster, key, s.opts.FixedOffset)
	if err != nil {
		return s.fail(ctx, sub, StateWriteFailed, err)
	}

	// the roster is a snapshot; confirm the user still owns that row
	row, found, err := s.store.FindRow(ctx, sess.SheetID, sess.Roster.Column, sess.UserID)
	if err != nil {
		return s.fail(ctx, sub, StateWriteFailed, fmt.Errorf("%w: find row: %w", dto.ErrStoreWriteFailed, err))
	}
	if !found {
		return s.fail(ctx, sub, StateWriteFailed, fmt.Errorf("%w: %q was removed from sheet %s", dto.ErrUserNotFound, sess.UserID, sess.SheetID))
	}
	if row != coord.Row {
		s.logger.Warn("roster row moved since session start",
			"user_id", sess.UserID, "snapshot_row", coord.Row, "store_row", row)
		coord.Row = row
	}
	sub.Coordinate = &coord

	value := sub.Selected.Canonical()
	if err := s.store.WriteCell(ctx, sess.SheetID, coord.Row, coord.Column, value); err != nil {
		return s.fail(ctx, sub, StateWriteFailed, fmt.Errorf("%w: %w", dto.ErrStoreWriteFailed, err))
	}

	sub.Err = nil
	sub.Report = &dto.WriteReport{
		UserID: sess.UserID,
		Date:   sub.Date.String(),
		Value:  value,
		Row:    coord.Row,
		Column: coord.Column,
		Day:    sub.Date.Day,
	}
	s.logger.Info("log entry saved",
		"user_id", sess.UserID, "date", sub.Date.String(), "value", value,
		"row", coord.Row, "column", coord.Column, "sheet", sess.SheetID)
	return s.advance(ctx, sub, StateWriteSuccess)
}

func (s *RunLogService) advance(ctx context.Context, sub *Submission, to State) error {
	from := sub.State
	if err := sub.transition(to, s.now()); err != nil {
		return err
	}
	s.observer.Observe(ctx, observe.Event{
		Kind:         observe.EventStateChanged,
		SubmissionID: sub.ID,
		Mode:         sub.Mode,
		From:         string(from),
		To:           string(to),
	})
	return nil
}

// fail moves sub to a terminal state with cause recorded and returns cause.
func (s *RunLogService) fail(ctx context.Context, sub *Submission, to State, cause error) error {
	sub.Err = cause
	s.observer.Observe(ctx, observe.Event{Kind: observe.EventFailure, SubmissionID: sub.ID, Mode: sub.Mode, Err: cause})
	if err := s.advance(ctx, sub, to); err != nil {
		return errors.Join(cause, err)
	}
	return cause
}

func snapshot(sub *Submission) *Submission {
	cp := *sub
	return &cp
}
