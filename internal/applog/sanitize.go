package applog

import (
	"net/http"
	"reflect"
	"strings"
)

// sensitiveHeaders is the fixed set of header names the spec requires the
// sanitiser to redact or reveal only partially (§4.F).
var sensitiveHeaders = map[string]struct{}{
	"authorization":       {},
	"cookie":              {},
	"set-cookie":          {},
	"x-api-key":           {},
	"x-auth-token":        {},
	"x-access-token":      {},
	"proxy-authorization": {},
	"www-authenticate":    {},
}

const maxHeaderValueLen = 200

// SanitizeHeaderValue applies the spec's per-value rule: sensitive headers
// with length <=10 become "[HIDDEN]"; longer ones reveal only
// first4…last4. Non-sensitive values pass through, truncated to 200 chars.
func SanitizeHeaderValue(name, value string) string {
	if _, sensitive := sensitiveHeaders[strings.ToLower(name)]; sensitive {
		if len(value) <= 10 {
			return "[HIDDEN]"
		}
		return value[:4] + "..." + value[len(value)-4:]
	}
	if len(value) > maxHeaderValueLen {
		return value[:maxHeaderValueLen]
	}
	return value
}

// SanitizeHeaders returns a new header map with keys normalised to lowercase
// and values passed through SanitizeHeaderValue. Multi-value headers are
// joined with ", " before sanitisation, matching how they'd be logged.
func SanitizeHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k, vv := range h {
		lower := strings.ToLower(k)
		joined := strings.Join(vv, ", ")
		out[lower] = SanitizeHeaderValue(lower, joined)
	}
	return out
}

// sensitiveKeySubstrings are matched case-insensitively against map/struct
// field names by SanitizeObject.
var sensitiveKeySubstrings = []string{"password", "token", "secret", "key", "auth"}

func looksSensitive(key string) bool {
	lower := strings.ToLower(key)
	for _, s := range sensitiveKeySubstrings {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}

// DefaultMaxDepth bounds the object sanitiser's recursion, per spec §4.F.
// Cyclic references are not a permitted input; this depth limit is the only
// guard, by design (no cycle detection is attempted).
const DefaultMaxDepth = 3

// SanitizeObject recursively walks v (maps, structs, slices) up to maxDepth,
// replacing any value whose key matches looksSensitive with "[HIDDEN]".
// Values deeper than maxDepth are replaced with "[MAX_DEPTH]" rather than
// traversed further.
func SanitizeObject(v any, maxDepth int) any {
	return sanitizeValue(reflect.ValueOf(v), maxDepth)
}

func sanitizeValue(rv reflect.Value, depth int) any {
	if !rv.IsValid() {
		return nil
	}
	if depth < 0 {
		return "[MAX_DEPTH]"
	}
	switch rv.Kind() {
	case reflect.Map:
		out := make(map[string]any, rv.Len())
		for _, key := range rv.MapKeys() {
			k := stringifyKey(key)
			val := rv.MapIndex(key)
			if looksSensitive(k) {
				out[k] = "[HIDDEN]"
				continue
			}
			out[k] = sanitizeValue(val, depth-1)
		}
		return out
	case reflect.Struct:
		out := make(map[string]any, rv.NumField())
		t := rv.Type()
		for i := 0; i < rv.NumField(); i++ {
			f := t.Field(i)
			if !f.IsExported() {
				continue
			}
			if looksSensitive(f.Name) {
				out[f.Name] = "[HIDDEN]"
				continue
			}
			out[f.Name] = sanitizeValue(rv.Field(i), depth-1)
		}
		return out
	case reflect.Slice, reflect.Array:
		out := make([]any, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			out[i] = sanitizeValue(rv.Index(i), depth-1)
		}
		return out
	case reflect.Ptr, reflect.Interface:
		if rv.IsNil() {
			return nil
		}
		return sanitizeValue(rv.Elem(), depth)
	default:
		if rv.CanInterface() {
			return rv.Interface()
		}
		return nil
	}
}

func stringifyKey(rv reflect.Value) string {
	if rv.Kind() == reflect.String {
		return rv.String()
	}
	return reflect.ValueOf(rv.Interface()).String()
}
