package web

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Bruhadev45/Cardsnap-AI/internal/capture"
	"github.com/Bruhadev45/Cardsnap-AI/internal/contacts"
)

// scanStatus maps a workflow error to an HTTP status and client message.
func scanStatus(err error) (int, string) {
	switch {
	case errors.Is(err, capture.ErrSessionNotFound):
		return http.StatusNotFound, "scan session not found"
	case errors.Is(err, capture.ErrBusy):
		return http.StatusConflict, "card is still being processed"
	case errors.Is(err, capture.ErrInvalidTransition):
		return http.StatusConflict, "action not allowed at this step"
	case errors.Is(err, capture.ErrEmptyImage), errors.Is(err, capture.ErrCaptureFailed):
		return http.StatusBadRequest, "capture failed, please try again"
	case errors.Is(err, capture.ErrExtractionFailed):
		return http.StatusBadGateway, "could not read the card, please scan again"
	case errors.Is(err, capture.ErrSaveFailed):
		return http.StatusInternalServerError, "failed to save contact"
	default:
		return http.StatusInternalServerError, "scan failed"
	}
}

func (s *Server) session(w http.ResponseWriter, r *http.Request) (*capture.Session, bool) {
	sess, err := s.scans.Get(chi.URLParam(r, "id"), ownerID(r))
	if err != nil {
		status, msg := scanStatus(err)
		writeError(w, status, msg)
		return nil, false
	}
	return sess, true
}

// respondScan writes the session's state after a step. When the step failed
// but the workflow moved on (e.g. extraction failure resets to scan_front),
// the new state is still reported alongside the error.
func (s *Server) respondScan(w http.ResponseWriter, sess *capture.Session, st capture.State, err error) {
	resp := toScanResponse(sess, st)
	if err == nil {
		writeJSON(w, http.StatusOK, resp)
		return
	}

	status, msg := scanStatus(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("scan step failed", "session_id", sess.ID(), "step", st.Step(), "error", err)
	}
	resp.Error = msg
	writeJSON(w, status, resp)
}

func (s *Server) handleStartScan(w http.ResponseWriter, r *http.Request) {
	sess := s.scans.Start(ownerID(r))
	writeJSON(w, http.StatusCreated, toScanResponse(sess, sess.State()))
}

func (s *Server) handleGetScan(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toScanResponse(sess, sess.State()))
}

func (s *Server) handleEndScan(w http.ResponseWriter, r *http.Request) {
	if err := s.scans.End(chi.URLParam(r, "id"), ownerID(r)); err != nil {
		status, msg := scanStatus(err)
		writeError(w, status, msg)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleCapture accepts the photo for whichever side the session is waiting
// on. Capturing the back runs extraction before the response is written.
func (s *Server) handleCapture(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	img, ok := s.readUploadedImage(w, r)
	if !ok {
		return
	}

	// Extraction runs to completion even if the client goes away, so the
	// session never stays stuck in processing.
	st, err := sess.Capture(context.WithoutCancel(r.Context()), capture.Still(img))
	s.respondScan(w, sess, st, err)
}

func (s *Server) handleChooseBack(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	st, err := sess.ChooseBack()
	s.respondScan(w, sess, st, err)
}

func (s *Server) handleSkipBack(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	st, err := sess.SkipBack(context.WithoutCancel(r.Context()))
	s.respondScan(w, sess, st, err)
}

func (s *Server) handleRetake(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	st, err := sess.Retake()
	s.respondScan(w, sess, st, err)
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	st, err := sess.Cancel()
	s.respondScan(w, sess, st, err)
}

// handleConfirm saves the reviewed candidate. A duplicate without
// ?override=1 answers 409 with the matching contacts and leaves the session
// in review.
func (s *Server) handleConfirm(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	existing, err := s.contacts.List(r.Context(), ownerID(r), contacts.Filter{})
	if err != nil {
		s.logger.Error("list contacts for duplicate check failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to check duplicates")
		return
	}

	override := r.URL.Query().Get("override") == "1" || r.URL.Query().Get("override") == "true"
	outcome, err := sess.Confirm(r.Context(), existing, override)
	if err != nil {
		s.respondScan(w, sess, sess.State(), err)
		return
	}

	resp := toScanResponse(sess, sess.State())
	if !outcome.Saved() {
		resp.Duplicates = toContactResponses(outcome.Duplicates)
		resp.Error = "a similar contact already exists"
		writeJSON(w, http.StatusConflict, resp)
		return
	}

	saved := toContactResponse(outcome.Contact)
	resp.Saved = &saved
	writeJSON(w, http.StatusOK, resp)
}
