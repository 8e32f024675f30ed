package logger

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

const redacted = "[REDACTED]"

var secretKeyParts = []string{"token", "authorization", "password", "secret", "cookie", "api_key"}

// redactor scrubs key/value pairs before they reach zap. Secrets are replaced
// outright; identifiers are hashed so lines stay correlatable. A nil redactor
// passes everything through.
type redactor struct {
	salt     string
	hashKeys []string
}

func newRedactor(salt string, extraHashKeys ...string) *redactor {
	keys := []string{"user_id"}
	for _, k := range extraHashKeys {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			keys = append(keys, k)
		}
	}
	return &redactor{salt: strings.TrimSpace(salt), hashKeys: keys}
}

func (r *redactor) scrub(kv []interface{}) []interface{} {
	if r == nil || len(kv) == 0 {
		return kv
	}
	out := make([]interface{}, len(kv))
	copy(out, kv)
	for i := 0; i+1 < len(kv); i += 2 {
		key := stringify(kv[i])
		out[i] = key
		out[i+1] = r.value(strings.ToLower(strings.TrimSpace(key)), kv[i+1])
	}
	return out
}

func (r *redactor) value(key string, val interface{}) interface{} {
	if key == "" {
		return val
	}
	if containsAny(key, secretKeyParts) {
		return redacted
	}
	if containsAny(key, r.hashKeys) {
		return r.hash(val)
	}
	if s, ok := val.(string); ok && looksLikeJWT(s) {
		return redacted
	}
	return val
}

func (r *redactor) hash(val interface{}) string {
	raw := stringify(val)
	if raw == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(r.salt + raw))
	return "hash:" + hex.EncodeToString(sum[:])[:12]
}

func containsAny(key string, parts []string) bool {
	for _, p := range parts {
		if strings.Contains(key, p) {
			return true
		}
	}
	return false
}

func looksLikeJWT(s string) bool {
	parts := strings.Split(s, ".")
	return len(parts) == 3 && len(parts[0]) > 10 && len(parts[1]) > 10
}

func stringify(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	case fmt.Stringer:
		return t.String()
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}
