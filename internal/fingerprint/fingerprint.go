// Package fingerprint reduces retrieved payloads to stable content hashes.
package fingerprint

import (
	"bytes"
	"encoding/json"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/user/slot-watcher/pkg/utils"
)

// InvalidPrefix starts every sentinel fingerprint.
const InvalidPrefix = "INVALID_HASH"

const bodyMarker = "<body"

// HTML hashes the part of a document after its last body marker, so volatile
// markup in the head (nonces, timestamps, inline scripts) never changes the result.
// A document without a marker is hashed whole.
func HTML(raw string) string {
	if !utf8.ValidString(raw) {
		return Invalid()
	}
	significant := raw
	if idx := strings.LastIndex(raw, bodyMarker); idx >= 0 {
		significant = raw[idx+len(bodyMarker):]
	}
	return utils.HashString(significant)
}

// JSON hashes a JSON document after canonicalization: object keys are sorted
// and insignificant whitespace is dropped. Numbers keep their literal form.
func JSON(raw []byte) string {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return Invalid()
	}
	if dec.More() {
		return Invalid()
	}
	canonical, err := json.Marshal(v)
	if err != nil {
		return Invalid()
	}
	return utils.HashString(string(canonical))
}

// Invalid returns a fresh sentinel. Two sentinels are never equal, so a
// sentinel can not hide a transition by matching a previous one.
func Invalid() string {
	return InvalidPrefix + ":" + uuid.NewString()
}

// IsInvalid reports whether fp is a sentinel.
func IsInvalid(fp string) bool {
	return strings.HasPrefix(fp, InvalidPrefix)
}

// Short returns the first eight characters of fp for log lines.
func Short(fp string) string {
	if IsInvalid(fp) {
		return InvalidPrefix
	}
	if len(fp) > 8 {
		return fp[:8]
	}
	return fp
}
