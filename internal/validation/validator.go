package validation

import (
	"errors"
	"net/url"
	"regexp"
	"strings"

	"github.com/youtube-comments-etl/internal/models"
)

var videoIDRegex = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

// ErrInvalidVideoID is returned when no video id can be recognized
var ErrInvalidVideoID = errors.New("invalid video id, expected 11 characters of [A-Za-z0-9_-] or a YouTube URL")

// ValidationError represents a single validation error
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
}

// ValidateComment reports every null field of a comment. A comment with no
// errors is complete.
func ValidateComment(comment *models.Comment) []ValidationError {
	var errors []ValidationError

	if comment.Author == nil {
		errors = append(errors, ValidationError{Field: "author", Message: "author is required"})
	}
	if comment.Text == nil {
		errors = append(errors, ValidationError{Field: "text", Message: "text is required"})
	}
	if comment.Likes == nil {
		errors = append(errors, ValidationError{Field: "likes", Message: "likes is required"})
	}
	if comment.PublishedAt == nil {
		errors = append(errors, ValidationError{Field: "publishedAt", Message: "publishedAt is required"})
	}

	return errors
}

// Fields returns the field names of errs
func Fields(errs []ValidationError) []string {
	fields := make([]string, 0, len(errs))
	for _, e := range errs {
		fields = append(fields, e.Field)
	}
	return fields
}

// NormalizeVideoID accepts a bare id, a watch URL, a youtu.be link or a
// shorts/embed URL and returns the 11-character id
func NormalizeVideoID(s string) (string, error) {
	s = strings.TrimSpace(s)
	if videoIDRegex.MatchString(s) {
		return s, nil
	}

	u, err := url.Parse(s)
	if err != nil || u.Host == "" {
		return "", ErrInvalidVideoID
	}

	host := strings.TrimPrefix(strings.ToLower(u.Host), "www.")
	host = strings.TrimPrefix(host, "m.")

	var candidate string
	switch host {
	case "youtu.be":
		candidate = strings.Trim(u.Path, "/")
	case "youtube.com", "music.youtube.com":
		if v := u.Query().Get("v"); v != "" {
			candidate = v
			break
		}
		parts := strings.Split(strings.Trim(u.Path, "/"), "/")
		if len(parts) == 2 && (parts[0] == "shorts" || parts[0] == "embed" || parts[0] == "live") {
			candidate = parts[1]
		}
	}

	if !videoIDRegex.MatchString(candidate) {
		return "", ErrInvalidVideoID
	}
	return candidate, nil
}
