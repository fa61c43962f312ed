package capture

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Bruhadev45/Cardsnap-AI/internal/domain"
)

var (
	frontJPEG = domain.Image{Data: []byte{0xFF, 0xD8, 0xFF, 0x01}, MimeType: "image/jpeg"}
	backJPEG  = domain.Image{Data: []byte{0xFF, 0xD8, 0xFF, 0x02}, MimeType: "image/jpeg"}
)

func fixedEnv() Env {
	return Env{
		Now:   func() time.Time { return time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC) },
		NewID: func() string { return "contact-1" },
	}
}

func TestTransitionFrontCapture(t *testing.T) {
	next, err := Transition(Initial(), Captured{Image: frontJPEG}, fixedEnv())
	require.NoError(t, err)
	assert.Equal(t, Decision{Front: frontJPEG}, next)
}

func TestTransitionEmptyCaptureKeepsState(t *testing.T) {
	next, err := Transition(ScanFront{}, Captured{}, fixedEnv())
	assert.ErrorIs(t, err, ErrEmptyImage)
	assert.Equal(t, ScanFront{}, next)

	back := ScanBack{Front: frontJPEG}
	next, err = Transition(back, Captured{Image: domain.Image{MimeType: "image/jpeg"}}, fixedEnv())
	assert.ErrorIs(t, err, ErrEmptyImage)
	assert.Equal(t, back, next)
}

func TestTransitionDecisionBranches(t *testing.T) {
	d := Decision{Front: frontJPEG}

	next, err := Transition(d, ChooseBack{}, fixedEnv())
	require.NoError(t, err)
	assert.Equal(t, ScanBack{Front: frontJPEG}, next)

	next, err = Transition(d, SkipBack{}, fixedEnv())
	require.NoError(t, err)
	assert.Equal(t, Processing{Front: frontJPEG}, next)

	next, err = Transition(d, Retake{}, fixedEnv())
	require.NoError(t, err)
	assert.Equal(t, ScanFront{}, next)
}

func TestTransitionBackCapture(t *testing.T) {
	next, err := Transition(ScanBack{Front: frontJPEG}, Captured{Image: backJPEG}, fixedEnv())
	require.NoError(t, err)

	p, ok := next.(Processing)
	require.True(t, ok)
	assert.Equal(t, frontJPEG, p.Front)
	require.NotNil(t, p.Back)
	assert.Equal(t, backJPEG, *p.Back)
}

func TestTransitionExtractionSucceededBuildsCandidate(t *testing.T) {
	back := backJPEG
	fields := domain.CardFields{FullName: "Ann Lee", Company: "Acme"}

	next, err := Transition(Processing{Front: frontJPEG, Back: &back}, ExtractionSucceeded{Fields: fields}, fixedEnv())
	require.NoError(t, err)

	r, ok := next.(Review)
	require.True(t, ok)
	assert.Equal(t, "contact-1", r.Candidate.ID)
	assert.Equal(t, time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC), r.Candidate.ScannedAt)
	assert.Equal(t, fields, r.Candidate.CardFields)
	assert.Equal(t, frontJPEG, r.Candidate.FrontImage)
	require.NotNil(t, r.Candidate.BackImage)
	assert.Equal(t, backJPEG, *r.Candidate.BackImage)
	assert.Empty(t, r.Candidate.OwnerID)
}

func TestTransitionExtractionFailedResets(t *testing.T) {
	next, err := Transition(Processing{Front: frontJPEG}, ExtractionFailed{Err: errors.New("boom")}, fixedEnv())
	require.NoError(t, err)
	assert.Equal(t, ScanFront{}, next)
}

func TestTransitionReviewExits(t *testing.T) {
	r := Review{Candidate: &domain.Contact{ID: "x"}}
	for _, e := range []Event{Retake{}, Cancel{}, Confirmed{}} {
		next, err := Transition(r, e, fixedEnv())
		require.NoError(t, err)
		assert.Equal(t, ScanFront{}, next)
	}
}

func TestTransitionRejectsIllegalPairs(t *testing.T) {
	tests := []struct {
		name  string
		state State
		event Event
	}{
		{"choose back before front", ScanFront{}, ChooseBack{}},
		{"skip back before front", ScanFront{}, SkipBack{}},
		{"retake in scan front", ScanFront{}, Retake{}},
		{"capture in decision", Decision{Front: frontJPEG}, Captured{Image: backJPEG}},
		{"skip from scan back", ScanBack{Front: frontJPEG}, SkipBack{}},
		{"cancel while processing", Processing{Front: frontJPEG}, Cancel{}},
		{"capture while processing", Processing{Front: frontJPEG}, Captured{Image: backJPEG}},
		{"capture in review", Review{Candidate: &domain.Contact{}}, Captured{Image: backJPEG}},
		{"extraction result outside processing", Review{Candidate: &domain.Contact{}}, ExtractionSucceeded{}},
		{"confirm outside review", Decision{Front: frontJPEG}, Confirmed{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, err := Transition(tt.state, tt.event, fixedEnv())
			assert.ErrorIs(t, err, ErrInvalidTransition)
			assert.Equal(t, tt.state, next)
		})
	}
}

func TestScanBackOnlyReachableThroughDecision(t *testing.T) {
	states := []State{ScanFront{}, ScanBack{Front: frontJPEG}, Processing{Front: frontJPEG}, Review{Candidate: &domain.Contact{}}}
	events := []Event{Captured{Image: frontJPEG}, ChooseBack{}, SkipBack{}, ExtractionSucceeded{}, ExtractionFailed{}, Retake{}, Cancel{}, Confirmed{}}

	for _, s := range states {
		for _, e := range events {
			next, err := Transition(s, e, fixedEnv())
			if err != nil {
				continue
			}
			if _, ok := next.(ScanBack); ok {
				t.Errorf("%s --%T--> scan_back; only decision may lead there", s.Step(), e)
			}
			if _, ok := next.(Decision); ok {
				_, fromFront := s.(ScanFront)
				_, captured := e.(Captured)
				assert.True(t, fromFront && captured, "decision reached from %s via %T", s.Step(), e)
			}
		}
	}
}

func TestTransitionZeroEnvUsesDefaults(t *testing.T) {
	next, err := Transition(Processing{Front: frontJPEG}, ExtractionSucceeded{Fields: domain.CardFields{FullName: "Ann Lee"}}, Env{})
	require.NoError(t, err)
	review, ok := next.(Review)
	require.True(t, ok)
	assert.NotEmpty(t, review.Candidate.ID)
	assert.False(t, review.Candidate.ScannedAt.IsZero())
	assert.Equal(t, time.UTC, review.Candidate.ScannedAt.Location())

	fixedID := Env{NewID: func() string { return "contact-9" }}
	next, err = Transition(Processing{Front: frontJPEG}, ExtractionSucceeded{}, fixedID)
	require.NoError(t, err)
	assert.Equal(t, "contact-9", next.(Review).Candidate.ID)
	assert.False(t, next.(Review).Candidate.ScannedAt.IsZero())
}
