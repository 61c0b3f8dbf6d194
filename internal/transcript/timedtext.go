package transcript

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

// ParseTimedText decodes a YouTube timedtext document.
//
// Two layouts are understood: the legacy one with
// <text start="1.2" dur="3.4">...</text> (seconds) and the srv3 one with
// <p t="1200" d="3400">...</p> (milliseconds). Caption text is entity-escaped
// once more inside the XML, so it is unescaped after tokenizing.
func ParseTimedText(body []byte) ([]RawSegment, error) {
	z := html.NewTokenizer(bytes.NewReader(body))

	var segments []RawSegment
	var current *RawSegment
	var closing string
	var text strings.Builder

	for {
		switch z.Next() {
		case html.ErrorToken:
			if z.Err() == io.EOF {
				return segments, nil
			}
			return nil, fmt.Errorf("tokenize timedtext: %w", z.Err())

		case html.StartTagToken:
			name, hasAttr := z.TagName()
			tag := string(name)
			if tag != "text" && tag != "p" {
				continue
			}

			seg := RawSegment{}
			for hasAttr {
				var key, val []byte
				key, val, hasAttr = z.TagAttr()
				applyTimingAttr(&seg, tag, string(key), string(val))
			}
			current = &seg
			closing = tag
			text.Reset()

		case html.TextToken:
			if current != nil {
				text.Write(z.Text())
			}

		case html.EndTagToken:
			name, _ := z.TagName()
			if current == nil || string(name) != closing {
				continue
			}
			current.Text = html.UnescapeString(text.String())
			segments = append(segments, *current)
			current = nil
		}
	}
}

// applyTimingAttr sets start/duration from a timedtext attribute
func applyTimingAttr(seg *RawSegment, tag, key, val string) {
	v, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return
	}

	switch {
	case tag == "text" && key == "start":
		seg.Start = v
	case tag == "text" && key == "dur":
		seg.Duration = v
	case tag == "p" && key == "t":
		seg.Start = v / 1000
	case tag == "p" && key == "d":
		seg.Duration = v / 1000
	}
}
