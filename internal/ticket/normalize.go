package ticket

import (
	"encoding/json"
	"strings"
)

// envelopeKeys are the field names scanner apps have used to wrap the code.
var envelopeKeys = []string{"code", "codigo"}

// NormalizeCode cleans up a scanned value. Some scanner apps send the QR payload
// as a JSON object or JSON string instead of the bare code. Anything that fails
// to parse is used as is.
func NormalizeCode(raw string) string {
	s := strings.TrimSpace(raw)

	switch {
	case strings.HasPrefix(s, "{"):
		var envelope map[string]any
		if json.Unmarshal([]byte(s), &envelope) == nil {
			for _, key := range envelopeKeys {
				if v, ok := envelope[key].(string); ok {
					s = strings.TrimSpace(v)
					break
				}
			}
		}
	case strings.HasPrefix(s, `"`):
		var unquoted string
		if json.Unmarshal([]byte(s), &unquoted) == nil {
			s = strings.TrimSpace(unquoted)
		}
	}

	return strings.ToUpper(s)
}
