// Package youtube fetches top-level comments from the YouTube Data API v3.
package youtube

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/youtube-comments-etl/internal/config"
	"github.com/youtube-comments-etl/internal/metrics"
	"github.com/youtube-comments-etl/internal/models"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	htransport "google.golang.org/api/transport/http"
)

const (
	// MaxResults is the page size requested from commentThreads.list, the API maximum
	MaxResults = 100

	// DefaultEndpoint is the Data API base URL used when none is configured
	DefaultEndpoint = "https://youtube.googleapis.com/"

	userAgent = "youtube-comments-etl"
)

var (
	ErrUnauthorized      = errors.New("youtube: credential rejected")
	ErrQuotaExceeded     = errors.New("youtube: quota exceeded")
	ErrVideoNotFound     = errors.New("youtube: video not found")
	ErrCommentsDisabled  = errors.New("youtube: comments disabled for video")
	ErrMalformedResponse = errors.New("youtube: malformed response")
)

// Client lists comment threads for a video
type Client struct {
	http     *http.Client
	endpoint string
	log      zerolog.Logger
}

// NewClient builds a client authenticated with the configured API key.
// Extra options are appended last so callers can override transport or endpoint.
func NewClient(ctx context.Context, cfg config.YouTubeConfig, log zerolog.Logger, opts ...option.ClientOption) (*Client, error) {
	clientOpts := []option.ClientOption{option.WithAPIKey(cfg.APIKey), option.WithUserAgent(userAgent)}
	if cfg.Endpoint != "" {
		clientOpts = append(clientOpts, option.WithEndpoint(cfg.Endpoint))
	}
	clientOpts = append(clientOpts, opts...)

	httpClient, endpoint, err := htransport.NewClient(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("create youtube http client: %w", err)
	}
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}

	return &Client{
		http:     httpClient,
		endpoint: endpoint,
		log:      log.With().Str("component", "youtube").Logger(),
	}, nil
}

// threadListResponse is the subset of a commentThreads.list response the
// fetcher reads. Snippet fields are pointers so absent keys can be told
// apart from zero values.
type threadListResponse struct {
	NextPageToken string          `json:"nextPageToken"`
	Items         []commentThread `json:"items"`
}

type commentThread struct {
	Snippet *struct {
		TopLevelComment *struct {
			Snippet *commentSnippet `json:"snippet"`
		} `json:"topLevelComment"`
	} `json:"snippet"`
}

type commentSnippet struct {
	AuthorDisplayName *string `json:"authorDisplayName"`
	TextOriginal      *string `json:"textOriginal"`
	LikeCount         *int64  `json:"likeCount"`
	PublishedAt       *string `json:"publishedAt"`
}

// FetchComments returns every top-level comment of the video in API order.
// Pages are requested one at a time until a response carries no
// nextPageToken. Nothing is retried.
func (c *Client) FetchComments(ctx context.Context, videoID string) ([]models.Comment, error) {
	comments := make([]models.Comment, 0)
	pageToken := ""

	for page := 1; ; page++ {
		resp, err := c.listThreads(ctx, videoID, pageToken)
		if err != nil {
			c.log.Error().Err(err).Str("video_id", videoID).Int("page", page).Msg("commentThreads.list failed")
			return nil, fmt.Errorf("fetch comments page %d: %w", page, err)
		}

		for i := range resp.Items {
			comment, err := commentFromThread(&resp.Items[i])
			if err != nil {
				metrics.ObserveAPIError("malformed")
				return nil, fmt.Errorf("page %d item %d: %w", page, i, err)
			}
			comments = append(comments, comment)
		}

		metrics.ObserveAPIPage(len(resp.Items))
		c.log.Debug().
			Str("video_id", videoID).
			Int("page", page).
			Int("items", len(resp.Items)).
			Int("total", len(comments)).
			Bool("has_next", resp.NextPageToken != "").
			Msg("Comment page fetched")

		if resp.NextPageToken == "" {
			break
		}
		pageToken = resp.NextPageToken
	}

	c.log.Info().Str("video_id", videoID).Int("comments", len(comments)).Msg("Comments fetched")
	return comments, nil
}

// listThreads performs a single commentThreads.list request
func (c *Client) listThreads(ctx context.Context, videoID, pageToken string) (*threadListResponse, error) {
	params := url.Values{}
	params.Set("part", "snippet")
	params.Set("videoId", videoID)
	params.Set("maxResults", strconv.Itoa(MaxResults))
	params.Set("alt", "json")
	params.Set("prettyPrint", "false")
	if pageToken != "" {
		params.Set("pageToken", pageToken)
	}

	reqURL := googleapi.ResolveRelative(c.endpoint, "youtube/v3/commentThreads") + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}

	res, err := c.http.Do(req)
	if err != nil {
		metrics.ObserveAPIError("transport")
		return nil, err
	}
	defer googleapi.CloseBody(res)

	if err := googleapi.CheckResponse(res); err != nil {
		return nil, classifyError(err)
	}

	body, err := io.ReadAll(res.Body)
	if err != nil {
		metrics.ObserveAPIError("transport")
		return nil, fmt.Errorf("read response: %w", err)
	}

	var resp threadListResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		metrics.ObserveAPIError("malformed")
		return nil, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}
	return &resp, nil
}

// commentFromThread maps the thread's top-level snippet. Every snippet key
// must be present; a present but empty string maps to null.
func commentFromThread(item *commentThread) (models.Comment, error) {
	if item.Snippet == nil || item.Snippet.TopLevelComment == nil || item.Snippet.TopLevelComment.Snippet == nil {
		return models.Comment{}, fmt.Errorf("%w: thread without topLevelComment snippet", ErrMalformedResponse)
	}
	snippet := item.Snippet.TopLevelComment.Snippet

	var missing []string
	if snippet.AuthorDisplayName == nil {
		missing = append(missing, "authorDisplayName")
	}
	if snippet.TextOriginal == nil {
		missing = append(missing, "textOriginal")
	}
	if snippet.LikeCount == nil {
		missing = append(missing, "likeCount")
	}
	if snippet.PublishedAt == nil {
		missing = append(missing, "publishedAt")
	}
	if len(missing) > 0 {
		return models.Comment{}, fmt.Errorf("%w: snippet missing %s", ErrMalformedResponse, strings.Join(missing, ", "))
	}

	likes := *snippet.LikeCount
	return models.Comment{
		Author:      optional(*snippet.AuthorDisplayName),
		Text:        optional(*snippet.TextOriginal),
		Likes:       &likes,
		PublishedAt: optional(*snippet.PublishedAt),
	}, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// classifyError wraps API failures with a sentinel describing the cause
func classifyError(err error) error {
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		metrics.ObserveAPIError("api")
		return err
	}

	reason := ""
	if len(apiErr.Errors) > 0 {
		reason = apiErr.Errors[0].Reason
	}

	var sentinel error
	switch {
	case apiErr.Code == http.StatusTooManyRequests,
		reason == "quotaExceeded", reason == "rateLimitExceeded",
		reason == "dailyLimitExceeded", reason == "userRateLimitExceeded":
		sentinel = ErrQuotaExceeded
	case reason == "commentsDisabled":
		sentinel = ErrCommentsDisabled
	case apiErr.Code == http.StatusNotFound, reason == "videoNotFound":
		sentinel = ErrVideoNotFound
	case apiErr.Code == http.StatusUnauthorized, apiErr.Code == http.StatusForbidden,
		reason == "keyInvalid", reason == "keyExpired":
		sentinel = ErrUnauthorized
	default:
		metrics.ObserveAPIError("api")
		return err
	}

	metrics.ObserveAPIError(reasonLabel(sentinel))
	return fmt.Errorf("%w: %w", sentinel, err)
}

func reasonLabel(sentinel error) string {
	switch sentinel {
	case ErrQuotaExceeded:
		return "quota"
	case ErrCommentsDisabled:
		return "comments_disabled"
	case ErrVideoNotFound:
		return "not_found"
	case ErrUnauthorized:
		return "unauthorized"
	}
	return "api"
}
