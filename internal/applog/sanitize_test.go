package applog

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeHeaderValueShortSensitiveHidden(t *testing.T) {
	assert.Equal(t, "[HIDDEN]", SanitizeHeaderValue("Authorization", "short"))
}

func TestSanitizeHeaderValueLongSensitivePartial(t *testing.T) {
	got := SanitizeHeaderValue("Authorization", "Bearer abcdefghijklmnop")
	assert.Equal(t, "Bear...mnop", got)
}

func TestSanitizeHeaderValueNonSensitiveTruncated(t *testing.T) {
	long := make([]byte, 300)
	for i := range long {
		long[i] = 'a'
	}
	got := SanitizeHeaderValue("X-Custom", string(long))
	assert.Len(t, got, 200)
}

func TestSanitizeHeadersLowercasesKeys(t *testing.T) {
	h := http.Header{"Content-Type": {"application/json"}}
	out := SanitizeHeaders(h)
	assert.Equal(t, "application/json", out["content-type"])
}

func TestSanitizeObjectHidesSensitiveKeys(t *testing.T) {
	in := map[string]any{"password": "hunter2", "name": "alice"}
	out := SanitizeObject(in, DefaultMaxDepth).(map[string]any)
	assert.Equal(t, "[HIDDEN]", out["password"])
	assert.Equal(t, "alice", out["name"])
}

func TestSanitizeObjectMaxDepth(t *testing.T) {
	in := map[string]any{"a": map[string]any{"b": map[string]any{"c": map[string]any{"d": "deep"}}}}
	out := SanitizeObject(in, 1)
	// depth 1 allows one level of nesting below the root before truncation
	m := out.(map[string]any)
	b := m["a"].(map[string]any)
	assert.Equal(t, "[MAX_DEPTH]", b["b"])
}
