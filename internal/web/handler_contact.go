package web

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Bruhadev45/Cardsnap-AI/internal/contacts"
	"github.com/Bruhadev45/Cardsnap-AI/internal/domain"
	"github.com/Bruhadev45/Cardsnap-AI/internal/export"
	"github.com/Bruhadev45/Cardsnap-AI/internal/photostore"
	"github.com/Bruhadev45/Cardsnap-AI/internal/service"
)

type updateContactRequest struct {
	FullName string   `json:"fullName" validate:"max=200"`
	JobTitle string   `json:"jobTitle" validate:"max=200"`
	Company  string   `json:"company" validate:"max=200"`
	Email    string   `json:"email" validate:"max=254"`
	Phone    string   `json:"phone" validate:"max=64"`
	Website  string   `json:"website" validate:"max=500"`
	Address  string   `json:"address" validate:"max=500"`
	Tags     []string `json:"tags" validate:"max=50,dive,max=50"`
}

func (req updateContactRequest) fields() domain.CardFields {
	return domain.CardFields{
		FullName: strings.TrimSpace(req.FullName),
		JobTitle: strings.TrimSpace(req.JobTitle),
		Company:  strings.TrimSpace(req.Company),
		Email:    strings.TrimSpace(req.Email),
		Phone:    strings.TrimSpace(req.Phone),
		Website:  strings.TrimSpace(req.Website),
		Address:  strings.TrimSpace(req.Address),
	}
}

// filterFromQuery reads ?q=, repeated ?company= and ?sort=.
func filterFromQuery(r *http.Request) (contacts.Filter, error) {
	q := r.URL.Query()
	sort, err := contacts.ParseSort(q.Get("sort"))
	if err != nil {
		return contacts.Filter{}, err
	}
	return contacts.Filter{
		Query:     strings.TrimSpace(q.Get("q")),
		Companies: q["company"],
		Sort:      sort,
	}, nil
}

func (s *Server) handleListContacts(w http.ResponseWriter, r *http.Request) {
	f, err := filterFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	list, err := s.contacts.List(r.Context(), ownerID(r), f)
	if err != nil {
		s.logger.Error("list contacts failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list contacts")
		return
	}
	writeJSON(w, http.StatusOK, toContactResponses(list))
}

func (s *Server) handleCompanies(w http.ResponseWriter, r *http.Request) {
	companies, err := s.contacts.Companies(r.Context(), ownerID(r))
	if err != nil {
		s.logger.Error("list companies failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list companies")
		return
	}
	if companies == nil {
		companies = []string{}
	}
	writeJSON(w, http.StatusOK, companies)
}

// handleExportCSV downloads the filtered contact list. ?format=excel prefixes
// a byte order mark so Excel detects UTF-8.
func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	f, err := filterFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	list, err := s.contacts.List(r.Context(), ownerID(r), f)
	if err != nil {
		s.logger.Error("export contacts failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to export contacts")
		return
	}

	write := export.CSV
	if r.URL.Query().Get("format") == "excel" {
		write = export.ExcelCSV
	}

	var buf bytes.Buffer
	if err := write(&buf, list, nil); err != nil {
		s.logger.Error("render csv failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to export contacts")
		return
	}

	w.Header().Set("Content-Type", export.CSVContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.FileName(s.now())+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleGetContact(w http.ResponseWriter, r *http.Request) {
	c, err := s.contacts.Get(r.Context(), ownerID(r), chi.URLParam(r, "id"))
	if errors.Is(err, service.ErrContactNotFound) {
		writeError(w, http.StatusNotFound, "contact not found")
		return
	}
	if err != nil {
		s.logger.Error("get contact failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get contact")
		return
	}
	writeJSON(w, http.StatusOK, toContactResponse(c))
}

func (s *Server) handleUpdateContact(w http.ResponseWriter, r *http.Request) {
	var req updateContactRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	c, err := s.contacts.Update(r.Context(), ownerID(r), chi.URLParam(r, "id"), req.fields(), req.Tags)
	if errors.Is(err, service.ErrContactNotFound) {
		writeError(w, http.StatusNotFound, "contact not found")
		return
	}
	if err != nil {
		s.logger.Error("update contact failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update contact")
		return
	}
	writeJSON(w, http.StatusOK, toContactResponse(c))
}

func (s *Server) handleDeleteContact(w http.ResponseWriter, r *http.Request) {
	err := s.contacts.Delete(r.Context(), ownerID(r), chi.URLParam(r, "id"))
	if errors.Is(err, service.ErrContactNotFound) {
		writeError(w, http.StatusNotFound, "contact not found")
		return
	}
	if err != nil {
		s.logger.Error("delete contact failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete contact")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleClearContacts(w http.ResponseWriter, r *http.Request) {
	n, err := s.contacts.ClearAll(r.Context(), ownerID(r))
	if err != nil {
		s.logger.Error("clear contacts failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to clear contacts")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"deleted": n})
}

func (s *Server) handleVCard(w http.ResponseWriter, r *http.Request) {
	c, err := s.contacts.Get(r.Context(), ownerID(r), chi.URLParam(r, "id"))
	if errors.Is(err, service.ErrContactNotFound) {
		writeError(w, http.StatusNotFound, "contact not found")
		return
	}
	if err != nil {
		s.logger.Error("get contact failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get contact")
		return
	}

	var buf bytes.Buffer
	if err := export.VCard(&buf, c); err != nil {
		s.logger.Error("render vcard failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to export contact")
		return
	}
	w.Header().Set("Content-Type", export.VCardContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.VCardFileName(c)+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleContactImage(w http.ResponseWriter, r *http.Request) {
	rc, mimeType, err := s.contacts.Image(r.Context(), ownerID(r), chi.URLParam(r, "id"), chi.URLParam(r, "side"))
	switch {
	case errors.Is(err, service.ErrUnknownSide):
		writeError(w, http.StatusBadRequest, "side must be front or back")
		return
	case errors.Is(err, service.ErrContactNotFound), errors.Is(err, photostore.ErrNotFound):
		writeError(w, http.StatusNotFound, "image not found")
		return
	case err != nil:
		s.logger.Error("open card image failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load image")
		return
	}
	defer closeWithLog(rc, "card image", s.logger)

	w.Header().Set("Content-Type", mimeType)
	w.Header().Set("Cache-Control", "private, max-age=86400")
	if _, err := io.Copy(w, rc); err != nil {
		s.logger.Error("stream card image failed", "error", err)
	}
}

type storageResponse struct {
	Bytes int64  `json:"bytes"`
	Human string `json:"human"`
}

func (s *Server) handleStorage(w http.ResponseWriter, r *http.Request) {
	n, err := s.contacts.StorageUsage(r.Context(), ownerID(r))
	if err != nil {
		s.logger.Error("storage usage failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to compute storage")
		return
	}
	w.Header().Set("X-Storage-Bytes", strconv.FormatInt(n, 10))
	writeJSON(w, http.StatusOK, storageResponse{Bytes: n, Human: service.FormatBytes(n)})
}
