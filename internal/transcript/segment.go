// Package transcript assembles model segments into annotated, speaker-attributed
// segments and renders them as a subtitle track and plain text.
package transcript

import (
	"fmt"
	"math"
	"strings"
)

// UnknownSpeaker is attached when diarization ran but could not attribute a segment.
const UnknownSpeaker = "SPEAKER_UNKNOWN"

// Word is a single word-level alignment produced by the aligner.
type Word struct {
	Word  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// RawSegment is one time-stamped span of text as returned by the speech model.
// Text may carry surrounding whitespace. Words is empty unless alignment ran.
type RawSegment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
	Words []Word  `json:"words,omitempty"`
}

// Validate checks that the segment describes a finite, non-negative, non-inverted span.
func (s RawSegment) Validate() error {
	if !finite(s.Start) || !finite(s.End) {
		return fmt.Errorf("start and end must be finite")
	}
	if s.Start < 0 {
		return fmt.Errorf("start cannot be negative")
	}
	if s.End < s.Start {
		return fmt.Errorf("end must not precede start")
	}
	return nil
}

// Speaker is an optional speaker attribution. The zero value is "no speaker".
type Speaker struct {
	label   string
	present bool
}

// NoSpeaker returns the absent attribution.
func NoSpeaker() Speaker { return Speaker{} }

// SpeakerLabel returns an attribution carrying label.
func SpeakerLabel(label string) Speaker { return Speaker{label: label, present: true} }

// Present reports whether a speaker is attached.
func (s Speaker) Present() bool { return s.present }

// Label returns the attached label and whether one is present.
func (s Speaker) Label() (string, bool) { return s.label, s.present }

func (s Speaker) String() string {
	if !s.present {
		return "<none>"
	}
	return s.label
}

// Diarization says whether speaker attribution ran and, if so, which label
// each segment position resolved to.
type Diarization struct {
	ran    bool
	labels map[int]string
}

// NoDiarization is used when speaker attribution did not run.
func NoDiarization() Diarization { return Diarization{} }

// Diarized is used when speaker attribution ran. labels maps a 0-based segment
// position to its label; positions missing from the map, or mapped to an empty
// label, were not resolved.
func Diarized(labels map[int]string) Diarization {
	copied := make(map[int]string, len(labels))
	for pos, label := range labels {
		copied[pos] = label
	}
	return Diarization{ran: true, labels: copied}
}

// Ran reports whether speaker attribution ran.
func (d Diarization) Ran() bool { return d.ran }

// Resolved returns the number of positions with a non-empty label.
func (d Diarization) Resolved() int {
	n := 0
	for _, label := range d.labels {
		if strings.TrimSpace(label) != "" {
			n++
		}
	}
	return n
}

func (d Diarization) speakerAt(pos int) Speaker {
	if !d.ran {
		return NoSpeaker()
	}
	if label := strings.TrimSpace(d.labels[pos]); label != "" {
		return SpeakerLabel(label)
	}
	return SpeakerLabel(UnknownSpeaker)
}

// AnnotatedSegment is a merged segment ready to be written.
type AnnotatedSegment struct {
	Index   int
	Start   float64
	End     float64
	Speaker Speaker
	Text    string
}

// DisplayLine is the text shown for the segment in both output formats.
func (s AnnotatedSegment) DisplayLine() string {
	if label, ok := s.Speaker.Label(); ok {
		return label + ": " + s.Text
	}
	return s.Text
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
