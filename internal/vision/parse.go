package vision

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/Bruhadev45/Cardsnap-AI/internal/domain"
)

var (
	ErrEmptyResponse = errors.New("no response from model")
	ErrNoJSON        = errors.New("no JSON found in response")
)

// jsonObject matches from the first '{' to the last '}' so that prose or code
// fences around the object are ignored.
var jsonObject = regexp.MustCompile(`(?s)\{.*\}`)

// ParseFields pulls the contact JSON object out of a model reply. Values that
// are not strings (a phone number sent as a number, say) are converted rather
// than rejected; nulls become empty.
func ParseFields(raw string) (domain.CardFields, error) {
	if strings.TrimSpace(raw) == "" {
		return domain.CardFields{}, ErrEmptyResponse
	}

	match := jsonObject.FindString(raw)
	if match == "" {
		return domain.CardFields{}, ErrNoJSON
	}

	var obj map[string]any
	if err := json.Unmarshal([]byte(match), &obj); err != nil {
		return domain.CardFields{}, fmt.Errorf("failed to decode contact JSON: %w", err)
	}

	return domain.CardFields{
		FullName: field(obj, "fullName"),
		JobTitle: field(obj, "jobTitle"),
		Company:  field(obj, "company"),
		Email:    field(obj, "email"),
		Phone:    field(obj, "phone"),
		Website:  field(obj, "website"),
		Address:  field(obj, "address"),
	}, nil
}

func field(obj map[string]any, key string) string {
	switch v := obj[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return ""
	}
}
