package paymentsvc

import (
	"encoding/json"
	"strconv"
	"strings"

	"helpdesk/models"
)

// Keys under which older rows stored the disambiguation code inside the
// raw provider payload, before the typed column existed.
var uniqueCodeKeys = []string{"unique_code", "uniqueCode", "kode_unik"}

// UniqueCode extracts the disambiguation code of a payment. The typed
// column wins when set; otherwise the raw payload is searched. The raw
// payload is untrusted free-form JSON, so every failure mode (absent,
// malformed, wrong type) maps to ("", false) instead of an error.
func UniqueCode(p *models.Payment) (string, bool) {
	if p == nil {
		return "", false
	}
	if p.UniqueCode != nil && *p.UniqueCode != "" {
		return *p.UniqueCode, true
	}
	return codeFromPayload(p.RawPayload)
}

func codeFromPayload(raw []byte) (string, bool) {
	if len(raw) == 0 {
		return "", false
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return "", false
	}
	for _, key := range uniqueCodeKeys {
		v, ok := fields[key]
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(v, &s); err == nil {
			s = strings.TrimSpace(s)
			if s != "" {
				return s, true
			}
			continue
		}
		// Some writers stored the code as a bare number.
		var n int64
		if err := json.Unmarshal(v, &n); err == nil {
			return strconv.FormatInt(n, 10), true
		}
	}
	return "", false
}
