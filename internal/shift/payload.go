package shift

import (
	"encoding/json"
	"regexp"
	"strings"

	"transportal/internal/apperr"
)

// Payload is the identity hint carried by a scanned QR code. Email and Code
// drive resolution; the rest are display fallbacks when the roster record is
// missing a field.
type Payload struct {
	Email   string
	Code    string
	Name    string
	College string
	Major   string
	Grade   string
}

// bareCode matches a student code scanned as plain text rather than JSON,
// e.g. "20231045" or "STU-20231045".
var bareCode = regexp.MustCompile(`^(?i)(STU-)?[0-9]{4,}$`)

// ParsePayload decodes a raw scan. Structured JSON is tried first; a bare
// string is accepted only when it looks like a student code.
func ParsePayload(raw string) (Payload, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Payload{}, apperr.New(apperr.Validation, "qr code data is required")
	}

	if strings.HasPrefix(raw, "{") {
		var body struct {
			Email     string `json:"email"`
			StudentID string `json:"studentId"`
			SnakeID   string `json:"student_id"`
			Code      string `json:"code"`
			ID        string `json:"id"`
			Name      string `json:"name"`
			College   string `json:"college"`
			Major     string `json:"major"`
			Grade     string `json:"grade"`
		}
		if err := json.Unmarshal([]byte(raw), &body); err != nil {
			return Payload{}, apperr.New(apperr.Validation, "unrecognized code format")
		}
		p := Payload{
			Email:   strings.TrimSpace(body.Email),
			Code:    firstNonEmpty(body.StudentID, body.SnakeID, body.Code, body.ID),
			Name:    strings.TrimSpace(body.Name),
			College: strings.TrimSpace(body.College),
			Major:   strings.TrimSpace(body.Major),
			Grade:   strings.TrimSpace(body.Grade),
		}
		if p.Email == "" && p.Code == "" {
			return Payload{}, apperr.New(apperr.Validation, "unrecognized code format")
		}
		return p, nil
	}

	if bareCode.MatchString(raw) {
		return Payload{Code: raw}, nil
	}
	return Payload{}, apperr.New(apperr.Validation, "unrecognized code format")
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
