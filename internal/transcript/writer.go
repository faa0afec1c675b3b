package transcript

import (
	"fmt"
	"strconv"
	"strings"

	"audiobaked/internal/timecode"
)

// Output holds the two renderings of a transcript.
type Output struct {
	// SubtitleTrack is SRT-style numbered, time-coded blocks.
	SubtitleTrack string
	// PlainText is one display line per segment.
	PlainText string
}

// Write renders segments as a subtitle track and as plain text. Blocks are
// numbered by position starting at 1.
func Write(segments []AnnotatedSegment) (Output, error) {
	var srt, txt strings.Builder

	for i, seg := range segments {
		span, err := timecode.Span(seg.Start, seg.End)
		if err != nil {
			return Output{}, fmt.Errorf("segment %d: %w", i+1, err)
		}
		line := seg.DisplayLine()

		srt.WriteString(strconv.Itoa(i + 1))
		srt.WriteByte('\n')
		srt.WriteString(span)
		srt.WriteByte('\n')
		srt.WriteString(line)
		srt.WriteString("\n\n")

		txt.WriteString(line)
		txt.WriteByte('\n')
	}

	return Output{SubtitleTrack: srt.String(), PlainText: txt.String()}, nil
}
