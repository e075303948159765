package subtitles

import (
	"math"
	"strings"
	"time"
)

// Segment is one timed span of a transcript, in seconds from media start.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Cue is one subtitle entry with millisecond precision timing.
type Cue struct {
	Index int
	Start time.Duration
	End   time.Duration
	Text  string
}

// File is an ordered list of cues. Language is informational and is not
// part of the SRT payload.
type File struct {
	Cues     []Cue
	Language string
}

// Padding widens every cue so captions appear slightly before speech starts
// and linger after it ends.
type Padding struct {
	LeadIn  time.Duration
	LeadOut time.Duration
}

// DefaultPadding is the 300ms/300ms padding applied to generated captions.
var DefaultPadding = Padding{LeadIn: 300 * time.Millisecond, LeadOut: 300 * time.Millisecond}

// Format converts segments into cues, one per segment in input order.
// Start times never go below zero and a cue never ends before it starts.
func Format(segments []Segment, padding Padding) File {
	leadIn := max(padding.LeadIn.Milliseconds(), 0)
	leadOut := max(padding.LeadOut.Milliseconds(), 0)

	cues := make([]Cue, 0, len(segments))
	for i, seg := range segments {
		startMS := max(secondsToMillis(seg.Start)-leadIn, 0)
		endMS := secondsToMillis(seg.End) + leadOut
		if endMS < startMS {
			endMS = startMS
		}
		cues = append(cues, Cue{
			Index: i + 1,
			Start: time.Duration(startMS) * time.Millisecond,
			End:   time.Duration(endMS) * time.Millisecond,
			Text:  strings.TrimSpace(seg.Text),
		})
	}
	return File{Cues: cues}
}

func secondsToMillis(seconds float64) int64 {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		return 0
	}
	return int64(math.Round(seconds * 1000))
}
