// Package assistant answers free-form questions about a user's contacts by
// handing the contact list to a chat model as context.
package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/Bruhadev45/Cardsnap-AI/internal/domain"
)

const (
	FallbackReply = "Sorry, I couldn't process your request. Please try again."
	EmptyReply    = "I couldn't generate a response."
)

var ErrEmptyQuery = errors.New("query is empty")

// Chatter sends one system prompt plus one user message to a chat model.
type Chatter interface {
	Chat(ctx context.Context, system, user string) (string, error)
}

type Assistant struct {
	chat   Chatter
	logger *slog.Logger
}

func New(chat Chatter, logger *slog.Logger) *Assistant {
	return &Assistant{chat: chat, logger: logger}
}

type contactContext struct {
	Name        string `json:"name"`
	Company     string `json:"company"`
	Job         string `json:"job"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	Website     string `json:"website"`
	Address     string `json:"address"`
	ScannedDate string `json:"scannedDate"`
	Notes       string `json:"notes"`
}

// SystemPrompt renders the instructions and contact database sent with every
// question.
func SystemPrompt(contacts []*domain.Contact) (string, error) {
	rows := make([]contactContext, 0, len(contacts))
	for _, c := range contacts {
		rows = append(rows, contactContext{
			Name:        c.FullName,
			Company:     c.Company,
			Job:         c.JobTitle,
			Email:       c.Email,
			Phone:       c.Phone,
			Website:     c.Website,
			Address:     c.Address,
			ScannedDate: c.ScannedAt.UTC().Format(time.RFC3339),
			Notes:       c.RawText,
		})
	}
	data, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode contacts: %w", err)
	}

	return fmt.Sprintf(`You are a business assistant with access to the user's scanned contact database.

Contact database (%d contacts):
%s

You can:
1. Answer questions about these contacts (names, companies, job titles, contact details).
2. Summarise the user's network, e.g. who works at a company or how many people share an industry.
3. Use general knowledge for business questions that go beyond the contact data.

Formatting rules:
- Plain text only. No markdown, no LaTeX.
- Use dashes for bullet points and 1., 2., 3. for numbered lists.
- No bold, italic or code formatting.

Be concise and professional. If the contact data does not answer the question, say so.`, len(contacts), data), nil
}

// Ask answers query. It never fails outright: model errors are logged and
// replaced with FallbackReply. Only a blank query is rejected.
func (a *Assistant) Ask(ctx context.Context, query string, contacts []*domain.Contact) (string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return "", ErrEmptyQuery
	}

	system, err := SystemPrompt(contacts)
	if err != nil {
		a.logger.Error("failed to build assistant prompt", "error", err)
		return FallbackReply, nil
	}

	reply, err := a.chat.Chat(ctx, system, query)
	if err != nil {
		a.logger.Error("assistant request failed", "error", err, "contacts", len(contacts))
		return FallbackReply, nil
	}
	if strings.TrimSpace(reply) == "" {
		reply = EmptyReply
	}
	return CleanFormatting(reply), nil
}

var cleanups = []struct {
	re   *regexp.Regexp
	repl string
}{
	{regexp.MustCompile(`\$\$([^$]+)\$\$`), "$1"},
	{regexp.MustCompile(`\$([^$]+)\$`), "$1"},
	{regexp.MustCompile(`\\[a-zA-Z]+\{([^}]+)\}`), "$1"},
	{regexp.MustCompile(`\\[a-zA-Z]+`), ""},
	{regexp.MustCompile(`\*\*([^*]+)\*\*`), "$1"},
	{regexp.MustCompile(`\*([^*]+)\*`), "$1"},
	{regexp.MustCompile(`__([^_]+)__`), "$1"},
	{regexp.MustCompile(`_([^_]+)_`), "$1"},
	{regexp.MustCompile(`(?m)^#{1,6}\s+`), ""},
	{regexp.MustCompile("```[a-z]*\n?"), ""},
	{regexp.MustCompile("`([^`]+)`"), "$1"},
	{regexp.MustCompile(`\n{3,}`), "\n\n"},
}

// CleanFormatting strips LaTeX and markdown that models emit despite being
// asked for plain text. Order matters: display math before inline math,
// bold before italic.
func CleanFormatting(text string) string {
	for _, c := range cleanups {
		text = c.re.ReplaceAllString(text, c.repl)
	}
	return strings.TrimSpace(text)
}
