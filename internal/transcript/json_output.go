package transcript

import (
	"encoding/json"
	"fmt"
	"io"

	"go.uber.org/zap"
)

type jsonSegment struct {
	Index   int     `json:"index"`
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Speaker *string `json:"speaker,omitempty"`
	Text    string  `json:"text"`
}

// MarshalJSON omits the speaker field when no speaker is attached.
func (s AnnotatedSegment) MarshalJSON() ([]byte, error) {
	out := jsonSegment{Index: s.Index, Start: s.Start, End: s.End, Text: s.Text}
	if label, ok := s.Speaker.Label(); ok {
		out.Speaker = &label
	}
	return json.Marshal(out)
}

// JSONOutput writes annotated segments as JSON lines.
type JSONOutput struct {
	writer io.Writer
	logger *zap.Logger
	count  int
}

// NewJSONOutput creates a new JSONOutput instance
func NewJSONOutput(writer io.Writer, logger *zap.Logger) *JSONOutput {
	return &JSONOutput{
		writer: writer,
		logger: logger,
	}
}

// OutputSegment writes one segment as a JSON line.
func (jo *JSONOutput) OutputSegment(segment AnnotatedSegment) error {
	raw := RawSegment{Start: segment.Start, End: segment.End, Text: segment.Text}
	if err := raw.Validate(); err != nil {
		jo.logger.Error("invalid segment", zap.Int("index", segment.Index), zap.Error(err))
		return fmt.Errorf("invalid segment %d: %w", segment.Index, err)
	}

	jsonBytes, err := json.Marshal(segment)
	if err != nil {
		return fmt.Errorf("failed to marshal segment to JSON: %w", err)
	}

	if _, err := fmt.Fprintf(jo.writer, "%s\n", jsonBytes); err != nil {
		jo.logger.Error("failed to write JSON output", zap.Error(err))
		return fmt.Errorf("failed to write JSON output: %w", err)
	}
	jo.count++

	jo.logger.Debug("output JSON segment",
		zap.Int("index", segment.Index),
		zap.Float64("start", segment.Start),
		zap.Float64("end", segment.End),
		zap.Stringer("speaker", segment.Speaker))

	return nil
}

// OutputAll writes every segment in order, stopping at the first failure.
func (jo *JSONOutput) OutputAll(segments []AnnotatedSegment) error {
	for _, seg := range segments {
		if err := jo.OutputSegment(seg); err != nil {
			return err
		}
	}
	return nil
}

// Count returns the number of segments written so far.
func (jo *JSONOutput) Count() int {
	return jo.count
}
