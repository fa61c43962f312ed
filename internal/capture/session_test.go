package capture

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Bruhadev45/Cardsnap-AI/internal/domain"
)

// stubExtractor records each call and returns a fixed result.
type stubExtractor struct {
	fields domain.CardFields
	err    error
	calls  int
	back   []*domain.Image
}

func (s *stubExtractor) Extract(_ context.Context, _ domain.Image, back *domain.Image) (domain.CardFields, error) {
	s.calls++
	s.back = append(s.back, back)
	return s.fields, s.err
}

// stubSink keeps saved contacts in memory.
type stubSink struct {
	saved  []*domain.Contact
	owners []string
	err    error
}

func (s *stubSink) Save(_ context.Context, ownerID string, c *domain.Contact) error {
	if s.err != nil {
		return s.err
	}
	s.saved = append(s.saved, c)
	s.owners = append(s.owners, ownerID)
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestSession(ext *stubExtractor, sink *stubSink) *Session {
	s := NewSession("user-1", ext, sink, discardLogger())
	s.env = fixedEnv()
	return s
}

func failingCapturer(err error) Capturer {
	return CapturerFunc(func(context.Context) (domain.Image, error) {
		return domain.Image{}, err
	})
}

func TestSessionEndToEndFrontOnly(t *testing.T) {
	ext := &stubExtractor{fields: domain.CardFields{FullName: "Ann Lee", Company: "Acme"}}
	sink := &stubSink{}
	s := newTestSession(ext, sink)
	ctx := context.Background()

	st, err := s.Capture(ctx, Still(frontJPEG))
	require.NoError(t, err)
	assert.Equal(t, StepDecision, st.Step())

	st, err = s.SkipBack(ctx)
	require.NoError(t, err)
	review, ok := st.(Review)
	require.True(t, ok)
	assert.Equal(t, "Ann Lee", review.Candidate.FullName)
	assert.Equal(t, "Acme", review.Candidate.Company)

	out, err := s.Confirm(ctx, nil, false)
	require.NoError(t, err)
	require.True(t, out.Saved())

	c := out.Contact
	assert.Equal(t, "contact-1", c.ID)
	assert.False(t, c.ScannedAt.IsZero())
	assert.Equal(t, frontJPEG, c.FrontImage)
	assert.Nil(t, c.BackImage)
	assert.Equal(t, domain.CardFields{FullName: "Ann Lee", Company: "Acme"}, c.CardFields)

	assert.Equal(t, 1, ext.calls)
	require.Len(t, sink.saved, 1)
	assert.Equal(t, []string{"user-1"}, sink.owners)
	assert.Equal(t, StepScanFront, s.State().Step())
}

func TestSessionBackCapturePassesBothImages(t *testing.T) {
	ext := &stubExtractor{fields: domain.CardFields{FullName: "Bo Chen"}}
	sink := &stubSink{}
	s := newTestSession(ext, sink)
	ctx := context.Background()

	_, err := s.Capture(ctx, Still(frontJPEG))
	require.NoError(t, err)
	st, err := s.ChooseBack()
	require.NoError(t, err)
	assert.Equal(t, StepScanBack, st.Step())

	st, err = s.Capture(ctx, Still(backJPEG))
	require.NoError(t, err)
	review := st.(Review)
	require.NotNil(t, review.Candidate.BackImage)
	assert.Equal(t, backJPEG, *review.Candidate.BackImage)

	assert.Equal(t, 1, ext.calls)
	require.NotNil(t, ext.back[0])
	assert.Equal(t, backJPEG, *ext.back[0])
}

func TestSessionSkipBackCallsExtractionWithoutBack(t *testing.T) {
	ext := &stubExtractor{}
	s := newTestSession(ext, &stubSink{})
	ctx := context.Background()

	_, err := s.Capture(ctx, Still(frontJPEG))
	require.NoError(t, err)
	_, err = s.SkipBack(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, ext.calls)
	assert.Nil(t, ext.back[0])
}

func TestSessionCaptureFailureLeavesStateUnchanged(t *testing.T) {
	ext := &stubExtractor{}
	s := newTestSession(ext, &stubSink{})
	ctx := context.Background()

	st, err := s.Capture(ctx, failingCapturer(errors.New("camera permission denied")))
	assert.ErrorIs(t, err, ErrCaptureFailed)
	assert.Equal(t, StepScanFront, st.Step())

	st, err = s.Capture(ctx, Still(domain.Image{}))
	assert.ErrorIs(t, err, ErrEmptyImage)
	assert.Equal(t, StepScanFront, st.Step())

	// retry in place succeeds
	st, err = s.Capture(ctx, Still(frontJPEG))
	require.NoError(t, err)
	assert.Equal(t, StepDecision, st.Step())

	_, err = s.ChooseBack()
	require.NoError(t, err)
	st, err = s.Capture(ctx, failingCapturer(errors.New("shutter jammed")))
	assert.ErrorIs(t, err, ErrCaptureFailed)
	assert.Equal(t, ScanBack{Front: frontJPEG}, st)
	assert.Zero(t, ext.calls)
}

func TestSessionExtractionFailureResets(t *testing.T) {
	ext := &stubExtractor{err: errors.New("all models unavailable")}
	sink := &stubSink{}
	s := newTestSession(ext, sink)
	ctx := context.Background()

	_, err := s.Capture(ctx, Still(frontJPEG))
	require.NoError(t, err)
	_, err = s.ChooseBack()
	require.NoError(t, err)

	st, err := s.Capture(ctx, Still(backJPEG))
	assert.ErrorIs(t, err, ErrExtractionFailed)
	assert.Equal(t, ScanFront{}, st)
	assert.Equal(t, ScanFront{}, s.State())
	assert.Equal(t, 1, ext.calls)
	assert.Empty(t, sink.saved)

	_, err = s.Confirm(ctx, nil, true)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Empty(t, sink.saved)
}

func TestSessionRetakeDiscardsEverything(t *testing.T) {
	ext := &stubExtractor{fields: domain.CardFields{FullName: "Ann Lee"}}
	s := newTestSession(ext, &stubSink{})
	ctx := context.Background()

	_, err := s.Capture(ctx, Still(frontJPEG))
	require.NoError(t, err)
	st, err := s.Retake()
	require.NoError(t, err)
	assert.Equal(t, ScanFront{}, st)

	_, err = s.Capture(ctx, Still(frontJPEG))
	require.NoError(t, err)
	_, err = s.SkipBack(ctx)
	require.NoError(t, err)
	st, err = s.Retake()
	require.NoError(t, err)
	assert.Equal(t, ScanFront{}, st)
	assert.Equal(t, ScanFront{}, s.State())
}

func TestSessionConfirmDuplicateNeedsOverride(t *testing.T) {
	ext := &stubExtractor{fields: domain.CardFields{FullName: "John Smith", Email: "a@x.com", Phone: "555"}}
	sink := &stubSink{}
	s := newTestSession(ext, sink)
	ctx := context.Background()
	existing := []*domain.Contact{{ID: "old", CardFields: domain.CardFields{FullName: "Jane Doe", Email: "a@x.com"}}}

	_, err := s.Capture(ctx, Still(frontJPEG))
	require.NoError(t, err)
	_, err = s.SkipBack(ctx)
	require.NoError(t, err)

	out, err := s.Confirm(ctx, existing, false)
	require.NoError(t, err)
	assert.False(t, out.Saved())
	require.Len(t, out.Duplicates, 1)
	assert.Equal(t, "old", out.Duplicates[0].ID)
	assert.Empty(t, sink.saved)
	assert.Equal(t, StepReview, s.State().Step())

	out, err = s.Confirm(ctx, existing, true)
	require.NoError(t, err)
	assert.True(t, out.Saved())
	assert.Len(t, sink.saved, 1)
	assert.Equal(t, StepScanFront, s.State().Step())
}

func TestSessionConfirmSinkFailureKeepsCandidate(t *testing.T) {
	ext := &stubExtractor{fields: domain.CardFields{FullName: "Ann Lee"}}
	sink := &stubSink{err: errors.New("disk full")}
	s := newTestSession(ext, sink)
	ctx := context.Background()

	_, err := s.Capture(ctx, Still(frontJPEG))
	require.NoError(t, err)
	_, err = s.SkipBack(ctx)
	require.NoError(t, err)

	_, err = s.Confirm(ctx, nil, false)
	assert.ErrorIs(t, err, ErrSaveFailed)
	assert.Equal(t, StepReview, s.State().Step())

	sink.err = nil
	out, err := s.Confirm(ctx, nil, false)
	require.NoError(t, err)
	assert.True(t, out.Saved())
}

func TestSessionCancel(t *testing.T) {
	s := newTestSession(&stubExtractor{}, &stubSink{})

	_, err := s.Capture(context.Background(), Still(frontJPEG))
	require.NoError(t, err)
	_, err = s.ChooseBack()
	require.NoError(t, err)

	st, err := s.Cancel()
	require.NoError(t, err)
	assert.Equal(t, ScanFront{}, st)
}

// blockingExtractor parks until released so tests can observe Processing.
type blockingExtractor struct {
	started chan struct{}
	release chan struct{}
}

func (b *blockingExtractor) Extract(context.Context, domain.Image, *domain.Image) (domain.CardFields, error) {
	close(b.started)
	<-b.release
	return domain.CardFields{FullName: "Late Result"}, nil
}

func TestSessionBusyWhileProcessing(t *testing.T) {
	ext := &blockingExtractor{started: make(chan struct{}), release: make(chan struct{})}
	s := NewSession("user-1", ext, &stubSink{}, discardLogger())
	ctx := context.Background()

	_, err := s.Capture(ctx, Still(frontJPEG))
	require.NoError(t, err)

	done := make(chan State)
	go func() {
		st, _ := s.SkipBack(ctx)
		done <- st
	}()
	<-ext.started

	assert.Equal(t, StepProcessing, s.State().Step())
	_, err = s.Retake()
	assert.ErrorIs(t, err, ErrBusy)
	_, err = s.Capture(ctx, Still(frontJPEG))
	assert.ErrorIs(t, err, ErrBusy)
	_, err = s.Confirm(ctx, nil, false)
	assert.ErrorIs(t, err, ErrBusy)

	close(ext.release)
	st := <-done
	assert.Equal(t, StepReview, st.Step())
}

type panickingExtractor struct{}

func (panickingExtractor) Extract(context.Context, domain.Image, *domain.Image) (domain.CardFields, error) {
	panic("decoder blew up")
}

func TestSessionExtractorPanicResets(t *testing.T) {
	sink := &stubSink{}
	s := NewSession("user-1", panickingExtractor{}, sink, discardLogger())
	ctx := context.Background()

	_, err := s.Capture(ctx, Still(frontJPEG))
	require.NoError(t, err)

	st, err := s.SkipBack(ctx)
	assert.ErrorIs(t, err, ErrExtractionFailed)
	assert.Contains(t, err.Error(), "decoder blew up")
	assert.Equal(t, ScanFront{}, st)
	assert.Equal(t, StepScanFront, s.State().Step())
	assert.Empty(t, sink.saved)

	// The session stays usable afterwards.
	st, err = s.Capture(ctx, Still(frontJPEG))
	require.NoError(t, err)
	assert.Equal(t, StepDecision, st.Step())
}
