package transcript

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestJSONOutput_OutputSegment(t *testing.T) {
	t.Run("should omit speaker when none is attached", func(t *testing.T) {
		// Arrange
		var buffer bytes.Buffer
		jsonOutput := NewJSONOutput(&buffer, zaptest.NewLogger(t))
		segment := AnnotatedSegment{Index: 1, Start: 0, End: 1.2, Text: "Hello"}

		// Act
		err := jsonOutput.OutputSegment(segment)

		// Assert
		require.NoError(t, err)
		assert.JSONEq(t, `{"index":1,"start":0,"end":1.2,"text":"Hello"}`, strings.TrimSpace(buffer.String()))
	})

	t.Run("should include speaker label and sentinel", func(t *testing.T) {
		// Arrange
		var buffer bytes.Buffer
		jsonOutput := NewJSONOutput(&buffer, zaptest.NewLogger(t))
		segments := Merge(sampleSegments(), Diarized(map[int]string{0: "A"}))

		// Act
		err := jsonOutput.OutputAll(segments)

		// Assert
		require.NoError(t, err)
		lines := strings.Split(strings.TrimSpace(buffer.String()), "\n")
		require.Len(t, lines, 3)
		assert.Equal(t, 3, jsonOutput.Count())

		var first, last map[string]any
		require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
		require.NoError(t, json.Unmarshal([]byte(lines[2]), &last))
		assert.Equal(t, "A", first["speaker"])
		assert.Equal(t, UnknownSpeaker, last["speaker"])
		assert.Equal(t, "test", last["text"])
	})

	t.Run("should reject invalid segments", func(t *testing.T) {
		var buffer bytes.Buffer
		jsonOutput := NewJSONOutput(&buffer, zaptest.NewLogger(t))

		err := jsonOutput.OutputSegment(AnnotatedSegment{Index: 4, Start: 2, End: 1})

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "invalid segment 4")
		assert.Empty(t, buffer.String())
	})

	t.Run("should surface writer failures", func(t *testing.T) {
		jsonOutput := NewJSONOutput(failingWriter{}, zaptest.NewLogger(t))

		err := jsonOutput.OutputSegment(AnnotatedSegment{Index: 1, Start: 0, End: 1, Text: "x"})

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to write JSON output")
		assert.Equal(t, 0, jsonOutput.Count())
	})
}
