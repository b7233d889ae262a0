package service

import (
	"context"
	"errors"
	"image"
	"testing"
	"time"

	"github.com/Aashish23092/runlog-ocr/dto"
	"github.com/Aashish23092/runlog-ocr/observe"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRecognizer struct {
	fragments []dto.RecognizedFragment
	err       error
	calls     int
}

func (f *fakeRecognizer) Recognize(_ context.Context, _ []byte) ([]dto.RecognizedFragment, error) {
	f.calls++
	return f.fragments, f.err
}

type cellWrite struct {
	sheet       string
	row, column int
	value       string
}

// fakeStore keeps columns per sheet in memory.
type fakeStore struct {
	columns  map[string]map[int][]string
	writes   []cellWrite
	writeErr error
	findErr  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{columns: map[string]map[int][]string{
		"2026-10": {2: {"name", "alice", "bob", "carol"}},
	}}
}

func (f *fakeStore) HasSheet(_ context.Context, sheetID string) (bool, error) {
	_, ok := f.columns[sheetID]
	return ok, nil
}

func (f *fakeStore) ReadColumn(_ context.Context, sheetID string, column int) ([]string, error) {
	return f.columns[sheetID][column], nil
}

func (f *fakeStore) FindRow(_ context.Context, sheetID string, column int, value string) (int, bool, error) {
	if f.findErr != nil {
		return 0, false, f.findErr
	}
	for i, v := range f.columns[sheetID][column] {
		if v == value {
			return i + 1, true, nil
		}
	}
	return 0, false, nil
}

func (f *fakeStore) WriteCell(_ context.Context, sheetID string, row, column int, value string) error {
	if f.writeErr != nil {
		return f.writeErr
	}
	f.writes = append(f.writes, cellWrite{sheetID, row, column, value})
	return nil
}

type fixture struct {
	svc    *RunLogService
	ocr    *fakeRecognizer
	store  *fakeStore
	events []observe.Event
}

func newFixture(t *testing.T, texts ...string) *fixture {
	t.Helper()
	f := &fixture{ocr: &fakeRecognizer{}, store: newFakeStore()}
	for _, text := range texts {
		f.ocr.fragments = append(f.ocr.fragments, dto.RecognizedFragment{Text: text, Confidence: 0.8})
	}
	obs := observe.ObserverFunc(func(_ context.Context, ev observe.Event) { f.events = append(f.events, ev) })
	opts := DefaultOptions()
	opts.Location = time.UTC
	f.svc = NewRunLogService(
		NewDocumentRecognizer(f.ocr, nil, nil),
		f.store,
		NewSessionStore(time.Minute, 0),
		NewDisambiguator(nil),
		obs,
		opts,
		nil,
	)
	f.svc.SetClock(func() time.Time { return time.Date(2026, 10, 15, 7, 30, 0, 0, time.UTC) })
	return f
}

func (f *fixture) states(submissionID string) []string {
	var out []string
	for _, ev := range f.events {
		if ev.Kind == observe.EventStateChanged && ev.SubmissionID == submissionID {
			out = append(out, ev.To)
		}
	}
	return out
}

func upload(contentType string) SubmitRequest {
	return SubmitRequest{Image: []byte{0x89, 'P', 'N', 'G'}, ContentType: contentType}
}

func TestSubmitSingleCandidateWrites(t *testing.T) {
	f := newFixture(t, "Today I ran 5.2km!", "Pace: 6:10/km")
	sess, err := f.svc.StartSession(context.Background(), "bob")
	require.NoError(t, err)

	sub, err := f.svc.Submit(context.Background(), sess.ID, upload("image/png"))

	require.NoError(t, err)
	assert.Equal(t, StateWriteSuccess, sub.State)
	assert.Equal(t, []cellWrite{{"2026-10", 3, 18, "5.2"}}, f.store.writes)
	require.NotNil(t, sub.Report)
	assert.Equal(t, dto.WriteReport{UserID: "bob", Date: "2026-10-15", Value: "5.2", Row: 3, Column: 18, Day: 15}, *sub.Report)
	assert.Equal(t, []string{"EXTRACTING", "CANDIDATES_FOUND", "RESOLVING_COORDINATE", "WRITE_SUCCESS"}, f.states(sub.ID))
}

func TestSubmitPromptUserWaitsForSelection(t *testing.T) {
	f := newFixture(t, "Run 5.2 km", "Week total 10 km")
	sess, err := f.svc.StartSession(context.Background(), "alice")
	require.NoError(t, err)

	sub, err := f.svc.Submit(context.Background(), sess.ID, SubmitRequest{
		Image: []byte("img"), ContentType: "image/jpeg", Policy: dto.PolicyPromptUser,
	})
	require.NoError(t, err)
	assert.Equal(t, StateAwaitingSelection, sub.State)
	assert.Len(t, sub.Candidates, 2)
	assert.Empty(t, f.store.writes)

	_, err = f.svc.Select(context.Background(), sess.ID, sub.ID, "7")
	require.ErrorIs(t, err, dto.ErrSelectionNotInCandidateSet)
	pending, err := f.svc.Submission(sess.ID, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, StateAwaitingSelection, pending.State)

	done, err := f.svc.Select(context.Background(), sess.ID, sub.ID, "10")
	require.NoError(t, err)
	assert.Equal(t, StateWriteSuccess, done.State)
	assert.Equal(t, []cellWrite{{"2026-10", 2, 18, "10"}}, f.store.writes)

	_, err = f.svc.Select(context.Background(), sess.ID, sub.ID, "10")
	assert.ErrorIs(t, err, dto.ErrInvalidTransition)
}

func TestSubmitAutoSingleAmbiguous(t *testing.T) {
	f := newFixture(t, "5.2km", "10km")
	sess, err := f.svc.StartSession(context.Background(), "alice")
	require.NoError(t, err)

	sub, err := f.svc.Submit(context.Background(), sess.ID, SubmitRequest{
		Image: []byte("img"), ContentType: "image/png", Policy: dto.PolicyAutoSingle,
	})

	require.ErrorIs(t, err, dto.ErrAmbiguousCandidates)
	assert.Equal(t, StateAwaitingSelection, sub.State)
	assert.Equal(t, "AMBIGUOUS_CANDIDATES", sub.Response().ErrorCode)
	assert.Empty(t, f.store.writes)
}

func TestSubmitRecognitionFailure(t *testing.T) {
	f := newFixture(t)
	f.ocr.err = errors.New("engine crashed")
	sess, err := f.svc.StartSession(context.Background(), "alice")
	require.NoError(t, err)

	sub, err := f.svc.Submit(context.Background(), sess.ID, upload("image/png"))

	require.ErrorIs(t, err, dto.ErrRecognitionFailed)
	assert.Equal(t, StateExtractionEmpty, sub.State)
	assert.ErrorIs(t, sub.Err, dto.ErrRecognitionFailed)
}

func TestSubmitNoCandidates(t *testing.T) {
	f := newFixture(t, "Great run today", "Pace: 6:10/km")
	sess, err := f.svc.StartSession(context.Background(), "alice")
	require.NoError(t, err)

	sub, err := f.svc.Submit(context.Background(), sess.ID, upload("image/png"))

	require.ErrorIs(t, err, dto.ErrNoCandidateFound)
	assert.Equal(t, StateExtractionEmpty, sub.State)
}

func TestSubmitWithoutUser(t *testing.T) {
	f := newFixture(t, "5.2km")
	sess, err := f.svc.StartSession(context.Background(), "")
	require.NoError(t, err)

	sub, err := f.svc.Submit(context.Background(), sess.ID, upload("image/png"))

	require.ErrorIs(t, err, dto.ErrUserNotSelected)
	assert.Equal(t, StateUserNotSelected, sub.State)
	assert.Empty(t, f.store.writes)

	_, err = f.svc.SelectUser(sess.ID, "carol")
	require.NoError(t, err)
	sub, err = f.svc.Submit(context.Background(), sess.ID, upload("image/png"))
	require.NoError(t, err)
	assert.Equal(t, []cellWrite{{"2026-10", 4, 18, "5.2"}}, f.store.writes)
	assert.Equal(t, StateWriteSuccess, sub.State)
}

func TestSelectUserMustBeInRoster(t *testing.T) {
	f := newFixture(t)
	sess, err := f.svc.StartSession(context.Background(), "")
	require.NoError(t, err)

	_, err = f.svc.SelectUser(sess.ID, "dave")
	assert.ErrorIs(t, err, dto.ErrUserNotFound)

	_, err = f.svc.StartSession(context.Background(), "dave")
	assert.ErrorIs(t, err, dto.ErrUserNotFound)
}

func TestStartSessionSheetNotFound(t *testing.T) {
	f := newFixture(t)
	f.svc.SetClock(func() time.Time { return time.Date(2026, 11, 1, 0, 0, 0, 0, time.UTC) })

	_, err := f.svc.StartSession(context.Background(), "alice")

	require.ErrorIs(t, err, dto.ErrSheetNotFound)
	assert.Contains(t, err.Error(), "2026-11")
}

func TestSubmitUserRemovedBeforeWrite(t *testing.T) {
	f := newFixture(t, "5.2km")
	sess, err := f.svc.StartSession(context.Background(), "bob")
	require.NoError(t, err)
	f.store.columns["2026-10"][2] = []string{"name", "alice", "carol"}

	sub, err := f.svc.Submit(context.Background(), sess.ID, upload("image/png"))

	require.ErrorIs(t, err, dto.ErrUserNotFound)
	assert.Equal(t, StateWriteFailed, sub.State)
	assert.Empty(t, f.store.writes)
}

func TestSubmitFollowsMovedRow(t *testing.T) {
	f := newFixture(t, "5.2km")
	sess, err := f.svc.StartSession(context.Background(), "bob")
	require.NoError(t, err)
	f.store.columns["2026-10"][2] = []string{"name", "zoe", "alice", "bob"}

	sub, err := f.svc.Submit(context.Background(), sess.ID, upload("image/png"))

	require.NoError(t, err)
	assert.Equal(t, 4, sub.Coordinate.Row)
	assert.Equal(t, []cellWrite{{"2026-10", 4, 18, "5.2"}}, f.store.writes)
}

func TestSubmitStoreWriteFailure(t *testing.T) {
	f := newFixture(t, "5.2km")
	f.store.writeErr = errors.New("quota exceeded")
	sess, err := f.svc.StartSession(context.Background(), "bob")
	require.NoError(t, err)

	sub, err := f.svc.Submit(context.Background(), sess.ID, upload("image/png"))

	require.ErrorIs(t, err, dto.ErrStoreWriteFailed)
	assert.Contains(t, err.Error(), "quota exceeded")
	assert.Equal(t, StateWriteFailed, sub.State)
}

func TestSubmitInvalidDate(t *testing.T) {
	f := newFixture(t, "5.2km")
	sess, err := f.svc.StartSession(context.Background(), "bob")
	require.NoError(t, err)

	req := upload("image/png")
	req.Date = &dto.Date{Year: 2026, Month: time.October, Day: 32}
	sub, err := f.svc.Submit(context.Background(), sess.ID, req)

	require.ErrorIs(t, err, dto.ErrInvalidDate)
	assert.Equal(t, StateWriteFailed, sub.State)
	assert.Empty(t, f.store.writes)
}

func TestSubmitBackfillDate(t *testing.T) {
	f := newFixture(t, "12.5 km")
	sess, err := f.svc.StartSession(context.Background(), "alice")
	require.NoError(t, err)

	req := upload("image/png")
	req.Date = &dto.Date{Year: 2026, Month: time.October, Day: 1}
	_, err = f.svc.Submit(context.Background(), sess.ID, req)

	require.NoError(t, err)
	assert.Equal(t, []cellWrite{{"2026-10", 2, 4, "12.5"}}, f.store.writes)
}

func TestSubmitRejectsUnknownMode(t *testing.T) {
	f := newFixture(t, "5km")
	sess, err := f.svc.StartSession(context.Background(), "bob")
	require.NoError(t, err)

	req := upload("image/png")
	req.Mode = "MILES"
	sub, err := f.svc.Submit(context.Background(), sess.ID, req)

	assert.Error(t, err)
	assert.Nil(t, sub)
	assert.Zero(t, f.ocr.calls)
}

func TestSubmitUnknownSession(t *testing.T) {
	f := newFixture(t, "5km")
	_, err := f.svc.Submit(context.Background(), "missing", upload("image/png"))
	assert.ErrorIs(t, err, dto.ErrSessionNotFound)
}

func TestPreviewDoesNotWrite(t *testing.T) {
	f := newFixture(t, "5.2 km", "10 km", "5.2 km")

	cands, err := f.svc.Preview(context.Background(), "image/png", []byte("img"), dto.ModeUnitSuffixed)

	require.NoError(t, err)
	assert.Len(t, cands, 2)
	assert.Empty(t, f.store.writes)
}

type fakePDF struct {
	fragments []dto.RecognizedFragment
	images    []image.Image
}

func (p *fakePDF) ExtractFragments([]byte) ([]dto.RecognizedFragment, error) { return p.fragments, nil }
func (p *fakePDF) ExtractImages([]byte) ([]image.Image, error)              { return p.images, nil }

func TestDocumentRecognizerPDFTextLayer(t *testing.T) {
	ocr := &fakeRecognizer{}
	pdf := &fakePDF{fragments: []dto.RecognizedFragment{{Text: "Morning Run - Distance 8.4 km", Confidence: 1}}}
	r := NewDocumentRecognizer(ocr, pdf, nil)

	frags, err := r.Recognize(context.Background(), "application/pdf", []byte("%PDF"))

	require.NoError(t, err)
	assert.Len(t, frags, 1)
	assert.Zero(t, ocr.calls)
}

func TestDocumentRecognizerScannedPDF(t *testing.T) {
	ocr := &fakeRecognizer{fragments: []dto.RecognizedFragment{{Text: "8.4 km", Confidence: 0.7}}}
	pdf := &fakePDF{images: []image.Image{image.NewGray(image.Rect(0, 0, 4, 4)), image.NewGray(image.Rect(0, 0, 4, 4))}}
	r := NewDocumentRecognizer(ocr, pdf, nil)

	frags, err := r.Recognize(context.Background(), "application/pdf", []byte("%PDF"))

	require.NoError(t, err)
	assert.Len(t, frags, 2)
	assert.Equal(t, 2, ocr.calls)
}

func TestDocumentRecognizerPDFDisabled(t *testing.T) {
	r := NewDocumentRecognizer(&fakeRecognizer{}, nil, nil)

	_, err := r.Recognize(context.Background(), "application/pdf", []byte("%PDF"))
	assert.ErrorIs(t, err, dto.ErrUnsupportedFile)

	_, err = r.Recognize(context.Background(), "image/png", nil)
	assert.ErrorIs(t, err, dto.ErrRecognitionFailed)
}
