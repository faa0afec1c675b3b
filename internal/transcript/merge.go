package transcript

import "strings"

// Merge combines raw segments with the optional speaker attribution into
// annotated segments. Upstream order is kept as given: segments are neither
// sorted nor repaired when they overlap, and none are dropped.
func Merge(raw []RawSegment, diarization Diarization) []AnnotatedSegment {
	merged := make([]AnnotatedSegment, 0, len(raw))
	for pos, seg := range raw {
		merged = append(merged, AnnotatedSegment{
			Index:   pos + 1,
			Start:   seg.Start,
			End:     seg.End,
			Speaker: diarization.speakerAt(pos),
			Text:    strings.TrimSpace(seg.Text),
		})
	}
	return merged
}
