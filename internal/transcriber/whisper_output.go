package transcriber

import (
	"encoding/json"
	"fmt"
	"os"

	"audiobaked/internal/transcript"
)

// whisperSegment is one segment of the engine's JSON output. whisperx adds
// words when alignment ran and speaker when diarization ran.
type whisperSegment struct {
	Start   float64           `json:"start"`
	End     float64           `json:"end"`
	Text    string            `json:"text"`
	Words   []transcript.Word `json:"words"`
	Speaker string            `json:"speaker"`
}

// whisperPayload is the JSON document written by both engines.
type whisperPayload struct {
	Language string           `json:"language"`
	Segments []whisperSegment `json:"segments"`
}

func loadPayload(path string) (*whisperPayload, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("no JSON transcript produced: %w", err)
	}
	return parsePayload(data)
}

func parsePayload(data []byte) (*whisperPayload, error) {
	var payload whisperPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode JSON transcript: %w", err)
	}
	return &payload, nil
}

// toResult converts the payload, keeping model order. Speaker labels are only
// read when diarization was requested.
func (p *whisperPayload) toResult(req Request) (Result, error) {
	result := Result{
		Language:    p.Language,
		Segments:    make([]transcript.RawSegment, 0, len(p.Segments)),
		Aligned:     req.Align,
		Diarization: transcript.NoDiarization(),
	}

	labels := make(map[int]string)
	for i, seg := range p.Segments {
		raw := transcript.RawSegment{
			Start: seg.Start,
			End:   seg.End,
			Text:  seg.Text,
			Words: seg.Words,
		}
		if err := raw.Validate(); err != nil {
			return Result{}, fmt.Errorf("segment %d: %w", i, err)
		}
		result.Segments = append(result.Segments, raw)
		if seg.Speaker != "" {
			labels[i] = seg.Speaker
		}
	}

	if req.Diarize {
		result.Diarization = transcript.Diarized(labels)
	}
	return result, nil
}
