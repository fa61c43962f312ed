package capture

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Bruhadev45/Cardsnap-AI/internal/domain"
)

// Capturer takes one still photo. It is invoked once per capture attempt.
type Capturer interface {
	Capture(ctx context.Context) (domain.Image, error)
}

// CapturerFunc adapts a function to Capturer.
type CapturerFunc func(ctx context.Context) (domain.Image, error)

func (f CapturerFunc) Capture(ctx context.Context) (domain.Image, error) {
	return f(ctx)
}

// Still returns a Capturer that yields img. Used when the photo was taken
// elsewhere, e.g. uploaded by a client.
func Still(img domain.Image) Capturer {
	return CapturerFunc(func(context.Context) (domain.Image, error) {
		return img, nil
	})
}

// Extractor turns card images into structured fields. back is nil when only
// the front was captured. Any internal retries are invisible to the workflow.
type Extractor interface {
	Extract(ctx context.Context, front domain.Image, back *domain.Image) (domain.CardFields, error)
}

// Sink persists a confirmed contact on behalf of ownerID.
type Sink interface {
	Save(ctx context.Context, ownerID string, c *domain.Contact) error
}

// Outcome is the result of Confirm. Contact is set when the candidate was
// saved; otherwise Duplicates lists the existing contacts that matched.
type Outcome struct {
	Contact    *domain.Contact
	Duplicates []*domain.Contact
}

// Saved reports whether the candidate was handed to the sink.
func (o Outcome) Saved() bool {
	return o.Contact != nil
}

// Session is one run of the capture workflow for one owner. All methods are
// safe for concurrent use; while extraction is in flight every other call
// fails with ErrBusy.
type Session struct {
	id        string
	ownerID   string
	extractor Extractor
	sink      Sink
	env       Env
	logger    *slog.Logger

	mu      sync.Mutex
	state   State
	updated time.Time
}

func NewSession(ownerID string, extractor Extractor, sink Sink, logger *slog.Logger) *Session {
	now := time.Now()
	return &Session{
		id:        uuid.NewString(),
		ownerID:   ownerID,
		extractor: extractor,
		sink:      sink,
		env:       DefaultEnv(),
		logger:    logger,
		state:     Initial(),
		updated:   now,
	}
}

func (s *Session) ID() string { return s.id }

func (s *Session) OwnerID() string { return s.ownerID }

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// LastActivity returns when the session last changed state.
func (s *Session) LastActivity() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updated
}

// Capture takes a photo from src for the front or back side. A failed or
// empty capture leaves the state unchanged. Capturing the back side runs
// extraction before returning.
func (s *Session) Capture(ctx context.Context, src Capturer) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state.(type) {
	case ScanFront, ScanBack:
	case Processing:
		return s.state, ErrBusy
	default:
		return s.state, fmt.Errorf("%w: capture in %s", ErrInvalidTransition, s.state.Step())
	}

	img, err := src.Capture(ctx)
	if err != nil {
		s.logger.Warn("capture failed", "session_id", s.id, "step", s.state.Step(), "error", err)
		return s.state, fmt.Errorf("%w: %w", ErrCaptureFailed, err)
	}

	return s.apply(ctx, Captured{Image: img})
}

// ChooseBack moves from Decision to ScanBack.
func (s *Session) ChooseBack() (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.apply(context.Background(), ChooseBack{})
}

// SkipBack runs extraction on the front image only.
func (s *Session) SkipBack(ctx context.Context) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.apply(ctx, SkipBack{})
}

// Retake discards every held image and any candidate.
func (s *Session) Retake() (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.apply(context.Background(), Retake{})
}

// Cancel abandons the current card. It is not available while processing.
func (s *Session) Cancel() (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.apply(context.Background(), Cancel{})
}

// Confirm finishes the review. existing is the caller's full contact set.
// When a duplicate is found and override is false, nothing is saved, the
// matches are returned and the session stays in Review. Otherwise the
// candidate is handed to the sink and the session resets to ScanFront. A sink
// error keeps the candidate in Review.
func (s *Session) Confirm(ctx context.Context, existing []*domain.Contact, override bool) (Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	review, ok := s.state.(Review)
	if !ok {
		if _, busy := s.state.(Processing); busy {
			return Outcome{}, ErrBusy
		}
		return Outcome{}, fmt.Errorf("%w: confirm in %s", ErrInvalidTransition, s.state.Step())
	}

	candidate := review.Candidate
	if dups := FindDuplicates(candidate, existing); len(dups) > 0 && !override {
		s.logger.Info("duplicate contact detected", "session_id", s.id, "contact_id", candidate.ID, "matches", len(dups))
		return Outcome{Duplicates: dups}, nil
	}

	if err := s.sink.Save(ctx, s.ownerID, candidate); err != nil {
		s.logger.Error("save contact failed", "session_id", s.id, "contact_id", candidate.ID, "error", err)
		return Outcome{}, fmt.Errorf("%w: %w", ErrSaveFailed, err)
	}

	if _, err := s.apply(ctx, Confirmed{}); err != nil {
		return Outcome{}, err
	}
	s.logger.Info("contact confirmed", "session_id", s.id, "contact_id", candidate.ID)
	return Outcome{Contact: candidate}, nil
}

// apply runs one transition and, on entry into Processing, the extraction
// that resolves it. s.mu must be held; it is released while the extractor runs.
func (s *Session) apply(ctx context.Context, e Event) (State, error) {
	if _, busy := s.state.(Processing); busy {
		return s.state, ErrBusy
	}

	next, err := Transition(s.state, e, s.env)
	if err != nil {
		return s.state, err
	}
	s.setState(next)

	p, ok := next.(Processing)
	if !ok {
		return next, nil
	}
	return s.process(ctx, p)
}

func (s *Session) process(ctx context.Context, p Processing) (State, error) {
	s.logger.Info("extraction started", "session_id", s.id, "has_back", p.Back != nil)

	fields, err := s.extractUnlocked(ctx, p)
	if err != nil {
		next, _ := Transition(p, ExtractionFailed{Err: err}, s.env)
		s.setState(next)
		s.logger.Warn("extraction failed", "session_id", s.id, "error", err)
		return next, fmt.Errorf("%w: %w", ErrExtractionFailed, err)
	}

	next, err := Transition(p, ExtractionSucceeded{Fields: fields}, s.env)
	if err != nil {
		return s.state, err
	}
	s.setState(next)
	s.logger.Info("extraction complete", "session_id", s.id, "full_name", fields.FullName, "company", fields.Company)
	return next, nil
}

// extractUnlocked calls the extractor with s.mu released. The lock is taken
// back even if the extractor panics; the panic becomes an extraction error.
func (s *Session) extractUnlocked(ctx context.Context, p Processing) (fields domain.CardFields, err error) {
	s.mu.Unlock()
	defer s.mu.Lock()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("extractor panicked: %v", r)
		}
	}()
	return s.extractor.Extract(ctx, p.Front, p.Back)
}

func (s *Session) setState(st State) {
	s.state = st
	s.updated = time.Now()
}
