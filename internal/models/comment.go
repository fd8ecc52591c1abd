package models

// Artifact file names written under the data directory
const (
	RawArtifact     = "raw_youtube_comments.csv"
	CleanedArtifact = "cleaned_youtube_comments.csv"
	FinalArtifact   = "comments_final.json"
)

// CommentColumns is the CSV header shared by the raw and cleaned artifacts
var CommentColumns = []string{"author", "text", "likes", "publishedAt"}

// Comment is a top-level YouTube comment. Every field is nullable: an empty
// CSV cell or a JSON null decodes to nil.
type Comment struct {
	Author      *string `json:"author"`
	Text        *string `json:"text"`
	Likes       *int64  `json:"likes"`
	PublishedAt *string `json:"publishedAt"`
}

// NewComment builds a comment with every field set
func NewComment(author, text string, likes int64, publishedAt string) Comment {
	return Comment{
		Author:      &author,
		Text:        &text,
		Likes:       &likes,
		PublishedAt: &publishedAt,
	}
}

// IsComplete reports whether no field is null
func (c *Comment) IsComplete() bool {
	return c.Author != nil && c.Text != nil && c.Likes != nil && c.PublishedAt != nil
}
