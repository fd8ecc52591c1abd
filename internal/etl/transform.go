package etl

import (
	"strings"

	"github.com/rs/zerolog"
	"github.com/youtube-comments-etl/internal/models"
	"github.com/youtube-comments-etl/internal/validation"
)

// "\r\n" is listed first so a Windows line break becomes a single space
var lineBreaks = strings.NewReplacer("\r\n", " ", "\r", " ", "\n", " ")

// CleanText replaces every line break in s with one space
func CleanText(s string) string {
	return lineBreaks.Replace(s)
}

// Clean strips line breaks from comment text and drops every comment with a
// null field. Relative order is preserved and the input is not modified.
func Clean(comments []models.Comment, log zerolog.Logger) ([]models.Comment, int) {
	cleaned := make([]models.Comment, 0, len(comments))
	dropped := 0

	for i, c := range comments {
		if c.Text != nil {
			text := CleanText(*c.Text)
			c.Text = &text
		}

		if errs := validation.ValidateComment(&c); len(errs) > 0 {
			dropped++
			log.Debug().
				Int("row", i+1).
				Strs("missing", validation.Fields(errs)).
				Msg("Dropping incomplete comment")
			continue
		}

		cleaned = append(cleaned, c)
	}

	return cleaned, dropped
}
