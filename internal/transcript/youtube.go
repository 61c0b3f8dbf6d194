package transcript

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// captionTrack is one entry of the player response "captionTracks" array
type captionTrack struct {
	BaseURL      string `json:"baseUrl"`
	LanguageCode string `json:"languageCode"`
	Kind         string `json:"kind"` // "asr" for auto-generated captions
}

// YouTubeSource fetches transcripts from YouTube caption tracks
type YouTubeSource struct {
	baseURL    string
	httpClient *http.Client
	userAgent  string
	languages  []string
	maxSize    int64
}

// NewYouTubeSource creates a new YouTube transcript source
func NewYouTubeSource(baseURL string, timeout time.Duration, maxSize int64, userAgent string, languages []string) *YouTubeSource {
	return &YouTubeSource{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return fmt.Errorf("too many redirects")
				}
				return nil
			},
		},
		userAgent: userAgent,
		languages: languages,
		maxSize:   maxSize,
	}
}

// Fetch retrieves and normalizes the transcript of a video.
// Any failure to locate captions is reported as ErrUnavailable.
func (s *YouTubeSource) Fetch(ctx context.Context, videoID string) ([]Segment, error) {
	if videoID == "" {
		return nil, fmt.Errorf("empty video id: %w", ErrUnavailable)
	}

	watchURL := fmt.Sprintf("%s/watch?v=%s", s.baseURL, url.QueryEscape(videoID))
	page, err := s.get(ctx, watchURL, "text/html")
	if err != nil {
		return nil, fmt.Errorf("failed to load watch page: %w", err)
	}

	tracks, err := parseCaptionTracks(page)
	if err != nil {
		return nil, err
	}

	track := pickTrack(tracks, s.languages)
	trackURL := track.BaseURL
	if strings.HasPrefix(trackURL, "/") {
		trackURL = s.baseURL + trackURL
	}

	body, err := s.get(ctx, trackURL, "text/xml")
	if err != nil {
		return nil, fmt.Errorf("failed to load caption track: %w", err)
	}

	raw, err := ParseTimedText(body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse caption track: %w", err)
	}

	segments := Normalize(raw)
	if len(segments) == 0 {
		return nil, fmt.Errorf("caption track for %s is empty: %w", videoID, ErrUnavailable)
	}

	return segments, nil
}

// get performs a GET request and returns the size-limited body
func (s *YouTubeSource) get(ctx context.Context, target string, accept string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", target, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", accept)
	req.Header.Set("Accept-Language", strings.Join(s.languages, ","))

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	return ReadLimitedBody(resp.Body, s.maxSize)
}

// parseCaptionTracks locates the captionTracks array embedded in a watch page
func parseCaptionTracks(page []byte) ([]captionTrack, error) {
	const marker = `"captionTracks":`

	idx := strings.Index(string(page), marker)
	if idx < 0 {
		return nil, fmt.Errorf("no caption tracks in watch page: %w", ErrUnavailable)
	}

	array := extractArray(string(page[idx+len(marker):]))
	if array == "" {
		return nil, fmt.Errorf("malformed caption tracks: %w", ErrUnavailable)
	}

	var tracks []captionTrack
	if err := json.Unmarshal([]byte(array), &tracks); err != nil {
		return nil, fmt.Errorf("failed to decode caption tracks: %w", errors.Join(err, ErrUnavailable))
	}
	if len(tracks) == 0 {
		return nil, fmt.Errorf("video has no caption tracks: %w", ErrUnavailable)
	}

	return tracks, nil
}

// extractArray returns the balanced JSON array at the start of s
func extractArray(s string) string {
	s = strings.TrimLeft(s, " \t\r\n")
	if len(s) == 0 || s[0] != '[' {
		return ""
	}

	depth := 0
	inString := false
	escaped := false

	for i := 0; i < len(s); i++ {
		ch := s[i]

		if escaped {
			escaped = false
			continue
		}
		if ch == '\\' && inString {
			escaped = true
			continue
		}
		if ch == '"' {
			inString = !inString
			continue
		}
		if inString {
			continue
		}

		switch ch {
		case '[', '{':
			depth++
		case ']', '}':
			depth--
			if depth == 0 {
				return s[:i+1]
			}
		}
	}

	return ""
}

// pickTrack chooses the best caption track for the preferred languages.
// Manual captions win over auto-generated ones in the same language.
func pickTrack(tracks []captionTrack, languages []string) captionTrack {
	for _, lang := range languages {
		for _, t := range tracks {
			if t.LanguageCode == lang && t.Kind != "asr" {
				return t
			}
		}
		for _, t := range tracks {
			if t.LanguageCode == lang {
				return t
			}
		}
	}

	return tracks[0]
}

// ReadLimitedBody reads up to maxBytes from a reader
func ReadLimitedBody(body io.Reader, maxBytes int64) ([]byte, error) {
	limited := io.LimitReader(body, maxBytes)
	return io.ReadAll(limited)
}
