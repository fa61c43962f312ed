package web

import (
	"time"

	"github.com/Bruhadev45/Cardsnap-AI/internal/capture"
	"github.com/Bruhadev45/Cardsnap-AI/internal/domain"
)

type contactResponse struct {
	ID string `json:"id"`
	domain.CardFields
	ScannedAt    time.Time `json:"scannedAt"`
	RawText      string    `json:"rawText,omitempty"`
	Tags         []string  `json:"tags"`
	HasBackImage bool      `json:"hasBackImage"`
}

func toContactResponse(c *domain.Contact) contactResponse {
	tags := c.Tags
	if tags == nil {
		tags = []string{}
	}
	return contactResponse{
		ID:           c.ID,
		CardFields:   c.CardFields,
		ScannedAt:    c.ScannedAt,
		RawText:      c.RawText,
		Tags:         tags,
		HasBackImage: c.BackImage != nil,
	}
}

func toContactResponses(cs []*domain.Contact) []contactResponse {
	out := make([]contactResponse, 0, len(cs))
	for _, c := range cs {
		out = append(out, toContactResponse(c))
	}
	return out
}

type scanResponse struct {
	ID         string            `json:"id"`
	Step       capture.Step      `json:"step"`
	HasFront   bool              `json:"hasFront"`
	HasBack    bool              `json:"hasBack"`
	Candidate  *contactResponse  `json:"candidate,omitempty"`
	Duplicates []contactResponse `json:"duplicates,omitempty"`
	Saved      *contactResponse  `json:"saved,omitempty"`
	Error      string            `json:"error,omitempty"`
}

func toScanResponse(sess *capture.Session, st capture.State) scanResponse {
	resp := scanResponse{ID: sess.ID(), Step: st.Step()}
	switch v := st.(type) {
	case capture.Decision:
		resp.HasFront = true
	case capture.ScanBack:
		resp.HasFront = true
	case capture.Processing:
		resp.HasFront = true
		resp.HasBack = v.Back != nil
	case capture.Review:
		resp.HasFront = true
		resp.HasBack = v.Candidate.BackImage != nil
		c := toContactResponse(v.Candidate)
		resp.Candidate = &c
	}
	return resp
}
