package transcriber

import (
	"strings"

	"audiobaked/internal/apperr"
)

// knownModels lists the Whisper model sizes both engines can load by name,
// with their approximate download size.
var knownModels = []struct {
	name string
	size string
}{
	{"tiny.en", "39 MB"},
	{"tiny", "39 MB"},
	{"base.en", "142 MB"},
	{"base", "142 MB"},
	{"small.en", "244 MB"},
	{"small", "244 MB"},
	{"medium.en", "769 MB"},
	{"medium", "769 MB"},
	{"large", "1.5 GB"},
	{"large-v1", "1.5 GB"},
	{"large-v2", "1.5 GB"},
	{"large-v3", "1.5 GB"},
	{"large-v3-turbo", "809 MB"},
	{"turbo", "809 MB"},
}

// AvailableModels returns the model sizes accepted by ValidateModel
func AvailableModels() []string {
	names := make([]string, 0, len(knownModels))
	for _, m := range knownModels {
		names = append(names, m.name)
	}
	return names
}

// NormalizeModelName returns the spelling the engines load, e.g. "Large-V2" becomes "large-v2".
func NormalizeModelName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// IsValidModelName checks if a model name is in the list of known models.
// Names are compared after NormalizeModelName.
func IsValidModelName(name string) bool {
	name = NormalizeModelName(name)
	for _, m := range knownModels {
		if m.name == name {
			return true
		}
	}
	return false
}

// ModelSize returns approximate size information for common models
func ModelSize(name string) string {
	name = NormalizeModelName(name)
	for _, m := range knownModels {
		if m.name == name {
			return m.size
		}
	}
	return "Unknown"
}

// ValidateModel returns a configuration error naming the accepted sizes when
// name is not a known model.
func ValidateModel(name string) error {
	if IsValidModelName(name) {
		return nil
	}
	return apperr.Configuration("unknown whisper model %q; choose one of: %s",
		name, strings.Join(AvailableModels(), ", "))
}
