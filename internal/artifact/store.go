// Package artifact reads and writes the comment files exchanged between
// pipeline stages.
package artifact

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/youtube-comments-etl/internal/models"
)

var (
	// ErrNotFound is returned when an artifact has not been written yet
	ErrNotFound = errors.New("artifact not found")
	// ErrMalformed is returned when an artifact cannot be parsed
	ErrMalformed = errors.New("malformed artifact")
)

// Store owns the artifact files under a single data directory
type Store struct {
	dir string
	log zerolog.Logger
}

// NewStore creates the data directory if needed
func NewStore(dir string, log zerolog.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &Store{
		dir: dir,
		log: log.With().Str("component", "artifact").Logger(),
	}, nil
}

// Dir returns the data directory
func (s *Store) Dir() string {
	return s.dir
}

// Path returns the absolute location of an artifact
func (s *Store) Path(name string) string {
	return filepath.Join(s.dir, name)
}

// Stat returns file info for an artifact, or ErrNotFound
func (s *Store) Stat(name string) (fs.FileInfo, error) {
	info, err := os.Stat(s.Path(name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return info, err
}

// WriteCSV replaces the named artifact with comments, header row first.
// Null fields are written as empty cells.
func (s *Store) WriteCSV(name string, comments []models.Comment) error {
	err := s.writeAtomic(name, func(w io.Writer) error {
		return EncodeCSV(w, comments)
	})
	if err != nil {
		return err
	}

	s.log.Debug().Str("artifact", name).Int("records", len(comments)).Msg("CSV artifact written")
	return nil
}

// EncodeCSV writes the header row followed by one row per comment
func EncodeCSV(w io.Writer, comments []models.Comment) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(models.CommentColumns); err != nil {
		return err
	}
	for i := range comments {
		if err := writer.Write(commentToRow(&comments[i])); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// ReadCSV parses the named artifact. Empty cells decode to nil.
func (s *Store) ReadCSV(name string) ([]models.Comment, error) {
	file, err := s.open(name)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	comments, err := DecodeCSV(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return comments, nil
}

// DecodeCSV parses comment rows from r. The header must name every column;
// column order is free.
func DecodeCSV(r io.Reader) ([]models.Comment, error) {
	reader := csv.NewReader(r)

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%w: missing header row", ErrMalformed)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	headerMap := make(map[string]int, len(header))
	for i, h := range header {
		headerMap[strings.TrimSpace(h)] = i
	}
	for _, col := range models.CommentColumns {
		if _, ok := headerMap[col]; !ok {
			return nil, fmt.Errorf("%w: missing column %q", ErrMalformed, col)
		}
	}

	comments := make([]models.Comment, 0)
	lineNum := 1 // header

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		lineNum++

		comment, err := rowToComment(record, headerMap)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrMalformed, lineNum, err)
		}
		comments = append(comments, comment)
	}

	return comments, nil
}

// WriteJSON replaces the named artifact with a JSON array of comment objects
func (s *Store) WriteJSON(name string, comments []models.Comment) error {
	if comments == nil {
		comments = []models.Comment{}
	}

	err := s.writeAtomic(name, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetEscapeHTML(false)
		return enc.Encode(comments)
	})
	if err != nil {
		return err
	}

	s.log.Debug().Str("artifact", name).Int("records", len(comments)).Msg("JSON artifact written")
	return nil
}

// ReadJSON parses the named JSON artifact
func (s *Store) ReadJSON(name string) ([]models.Comment, error) {
	file, err := s.open(name)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	comments := make([]models.Comment, 0)
	if err := json.NewDecoder(file).Decode(&comments); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformed, name, err)
	}
	return comments, nil
}

// Read decodes any artifact by its extension
func (s *Store) Read(name string) ([]models.Comment, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		return s.ReadCSV(name)
	case ".json":
		return s.ReadJSON(name)
	default:
		return nil, fmt.Errorf("unsupported artifact type: %s", name)
	}
}

func (s *Store) open(name string) (*os.File, error) {
	file, err := os.Open(s.Path(name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return nil, err
	}
	return file, nil
}

// writeAtomic writes into a temp file in the data dir and renames it over
// the target so readers never observe a half-written artifact
func (s *Store) writeAtomic(name string, write func(io.Writer) error) error {
	tmp, err := os.CreateTemp(s.dir, name+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file for %s: %w", name, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if err := write(tmp); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", name, err)
	}
	if err := os.Rename(tmpName, s.Path(name)); err != nil {
		return fmt.Errorf("replace %s: %w", name, err)
	}
	return nil
}

func commentToRow(c *models.Comment) []string {
	row := make([]string, len(models.CommentColumns))
	if c.Author != nil {
		row[0] = *c.Author
	}
	if c.Text != nil {
		row[1] = *c.Text
	}
	if c.Likes != nil {
		row[2] = strconv.FormatInt(*c.Likes, 10)
	}
	if c.PublishedAt != nil {
		row[3] = *c.PublishedAt
	}
	return row
}

func rowToComment(record []string, headerMap map[string]int) (models.Comment, error) {
	var c models.Comment

	c.Author = getField(record, headerMap, "author")
	c.Text = getField(record, headerMap, "text")
	c.PublishedAt = getField(record, headerMap, "publishedAt")

	if likes := getField(record, headerMap, "likes"); likes != nil {
		n, err := strconv.ParseInt(strings.TrimSpace(*likes), 10, 64)
		if err != nil {
			return c, fmt.Errorf("likes %q is not an integer", *likes)
		}
		c.Likes = &n
	}

	return c, nil
}

// getField returns nil for an empty or absent cell. Values are not trimmed:
// whitespace in comment text is content.
func getField(record []string, headerMap map[string]int, field string) *string {
	idx, ok := headerMap[field]
	if !ok || idx >= len(record) || record[idx] == "" {
		return nil
	}
	v := record[idx]
	return &v
}
