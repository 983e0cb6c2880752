package templates

import "golang.org/x/text/message"

// Localizer provides translated strings for console components.
type Localizer interface {
	Sprintf(key message.Reference, args ...any) string
}

// T returns a translated string or the key if no localizer is available.
func T(loc Localizer, key message.Reference, args ...any) string {
	if loc == nil {
		if keyString, ok := key.(string); ok {
			return keyString
		}
		return ""
	}
	return loc.Sprintf(key, args...)
}

// statusKeys maps backend status values to catalog keys.
var statusKeys = map[string]string{
	"confirmed": "status.confirmed",
	"pending":   "status.pending",
	"completed": "status.completed",
	"cancelled": "status.cancelled",
	"active":    "status.active",
	"inactive":  "status.inactive",
}

// StatusLabel localizes a known status value and passes unknown ones through.
func StatusLabel(loc Localizer, status string) string {
	if key, ok := statusKeys[status]; ok {
		return T(loc, key)
	}
	return status
}
