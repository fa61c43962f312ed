// Package capture drives a business card from photo capture through AI field
// extraction and review to a confirmed contact.
//
// The workflow is a small state machine:
//
//	ScanFront -> Decision -> ScanBack -> Processing -> Review
//	                 \________________/      |            |
//	                     (skip back)         | failure    | retake / confirm
//	                                         v            v
//	                                     ScanFront    ScanFront
//
// States and events are closed sets of Go types and every change goes through
// Transition, so the workflow can be exercised without any UI.
package capture

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Bruhadev45/Cardsnap-AI/internal/domain"
)

// Step names a workflow state.
type Step string

const (
	StepScanFront  Step = "scan_front"
	StepDecision   Step = "decision"
	StepScanBack   Step = "scan_back"
	StepProcessing Step = "processing"
	StepReview     Step = "review"
)

// State is one of ScanFront, Decision, ScanBack, Processing or Review.
type State interface {
	Step() Step
	isState()
}

type ScanFront struct{}

type Decision struct {
	Front domain.Image
}

type ScanBack struct {
	Front domain.Image
}

// Processing holds the images handed to the extractor. Back is nil when the
// back side was skipped.
type Processing struct {
	Front domain.Image
	Back  *domain.Image
}

// Review holds the candidate contact awaiting confirmation.
type Review struct {
	Candidate *domain.Contact
}

func (ScanFront) Step() Step  { return StepScanFront }
func (Decision) Step() Step   { return StepDecision }
func (ScanBack) Step() Step   { return StepScanBack }
func (Processing) Step() Step { return StepProcessing }
func (Review) Step() Step     { return StepReview }

func (ScanFront) isState()  {}
func (Decision) isState()   {}
func (ScanBack) isState()   {}
func (Processing) isState() {}
func (Review) isState()     {}

// Initial returns the state every workflow starts in.
func Initial() State {
	return ScanFront{}
}

// Event is one of Captured, ChooseBack, SkipBack, ExtractionSucceeded,
// ExtractionFailed, Retake, Cancel or Confirmed.
type Event interface {
	isEvent()
}

// Captured carries a still image from the capture provider.
type Captured struct {
	Image domain.Image
}

type ChooseBack struct{}

type SkipBack struct{}

type ExtractionSucceeded struct {
	Fields domain.CardFields
}

type ExtractionFailed struct {
	Err error
}

type Retake struct{}

type Cancel struct{}

// Confirmed signals that the candidate was handed to the persistence sink.
type Confirmed struct{}

func (Captured) isEvent()            {}
func (ChooseBack) isEvent()          {}
func (SkipBack) isEvent()            {}
func (ExtractionSucceeded) isEvent() {}
func (ExtractionFailed) isEvent()    {}
func (Retake) isEvent()              {}
func (Cancel) isEvent()              {}
func (Confirmed) isEvent()           {}

// Env supplies the identifier and timestamp stamped on a candidate. A nil
// field falls back to DefaultEnv.
type Env struct {
	Now   func() time.Time
	NewID func() string
}

// DefaultEnv stamps candidates with a random UUID and the current UTC time.
func DefaultEnv() Env {
	return Env{
		Now:   func() time.Time { return time.Now().UTC() },
		NewID: uuid.NewString,
	}
}

func (e Env) withDefaults() Env {
	d := DefaultEnv()
	if e.Now == nil {
		e.Now = d.Now
	}
	if e.NewID == nil {
		e.NewID = d.NewID
	}
	return e
}

// Transition applies e to s. An illegal pair returns s unchanged together
// with ErrInvalidTransition; an empty capture returns s with ErrEmptyImage.
func Transition(s State, e Event, env Env) (State, error) {
	switch st := s.(type) {
	case ScanFront:
		if ev, ok := e.(Captured); ok {
			if ev.Image.Empty() {
				return s, ErrEmptyImage
			}
			return Decision{Front: ev.Image}, nil
		}
		if _, ok := e.(Cancel); ok {
			return ScanFront{}, nil
		}

	case Decision:
		switch e.(type) {
		case ChooseBack:
			return ScanBack{Front: st.Front}, nil
		case SkipBack:
			return Processing{Front: st.Front}, nil
		case Retake, Cancel:
			return ScanFront{}, nil
		}

	case ScanBack:
		switch ev := e.(type) {
		case Captured:
			if ev.Image.Empty() {
				return s, ErrEmptyImage
			}
			back := ev.Image
			return Processing{Front: st.Front, Back: &back}, nil
		case Retake, Cancel:
			return ScanFront{}, nil
		}

	case Processing:
		switch ev := e.(type) {
		case ExtractionSucceeded:
			return Review{Candidate: newCandidate(st, ev.Fields, env)}, nil
		case ExtractionFailed:
			return ScanFront{}, nil
		}

	case Review:
		switch e.(type) {
		case Retake, Cancel, Confirmed:
			return ScanFront{}, nil
		}
	}

	return s, fmt.Errorf("%w: %T in %s", ErrInvalidTransition, e, s.Step())
}

func newCandidate(p Processing, fields domain.CardFields, env Env) *domain.Contact {
	env = env.withDefaults()
	c := &domain.Contact{
		ID:         env.NewID(),
		CardFields: fields,
		ScannedAt:  env.Now(),
		FrontImage: p.Front,
	}
	if p.Back != nil {
		back := *p.Back
		c.BackImage = &back
	}
	return c
}
