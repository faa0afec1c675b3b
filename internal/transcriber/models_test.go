package transcriber

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"audiobaked/internal/apperr"
)

func TestModels(t *testing.T) {
	t.Run("should list known sizes", func(t *testing.T) {
		models := AvailableModels()

		assert.Contains(t, models, "tiny")
		assert.Contains(t, models, "medium")
		assert.Contains(t, models, "large-v3")
	})

	t.Run("should accept the plain large size", func(t *testing.T) {
		assert.NoError(t, ValidateModel("large"))
		assert.Equal(t, "1.5 GB", ModelSize("large"))
	})

	t.Run("should match names after normalizing", func(t *testing.T) {
		assert.True(t, IsValidModelName("Large-V2"))
		assert.NoError(t, ValidateModel("MEDIUM"))
		assert.Equal(t, "large-v2", NormalizeModelName(" Large-V2 "))
		assert.False(t, IsValidModelName("huge"))
	})

	t.Run("should report approximate sizes", func(t *testing.T) {
		assert.Equal(t, "769 MB", ModelSize("medium"))
		assert.Equal(t, "Unknown", ModelSize("huge"))
	})

	t.Run("should return a configuration error for unknown models", func(t *testing.T) {
		err := ValidateModel("huge")

		assert.True(t, apperr.IsCode(err, apperr.CodeConfiguration))
		assert.Contains(t, err.Error(), "tiny")
		assert.NoError(t, ValidateModel("base.en"))
	})
}
