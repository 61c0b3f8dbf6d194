package transcript

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DirSource reads transcripts from <dir>/<videoID>.json files holding an
// array of {start, duration, text} objects.
type DirSource struct {
	dir string
}

// NewDirSource creates a transcript source backed by a directory
func NewDirSource(dir string) *DirSource {
	return &DirSource{dir: dir}
}

// Fetch loads the transcript file for a video
func (s *DirSource) Fetch(ctx context.Context, videoID string) ([]Segment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Video IDs are plain tokens; reject anything that could escape the directory
	if videoID == "" || strings.ContainsAny(videoID, `/\`) || strings.Contains(videoID, "..") {
		return nil, fmt.Errorf("invalid video id %q: %w", videoID, ErrUnavailable)
	}

	data, err := os.ReadFile(filepath.Join(s.dir, videoID+".json"))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("no transcript file for %s: %w", videoID, ErrUnavailable)
		}
		return nil, fmt.Errorf("failed to read transcript file: %w", err)
	}

	var raw []RawSegment
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse transcript file: %w", err)
	}

	segments := Normalize(raw)
	if len(segments) == 0 {
		return nil, fmt.Errorf("transcript file for %s is empty: %w", videoID, ErrUnavailable)
	}

	return segments, nil
}
