package storage

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/modeltap/modeltap/pkg/capture"
	"github.com/stretchr/testify/assert"
)

func TestRouterResolvesBatchDirectory(t *testing.T) {
	router := NewRouter("/data", "x-batch-id")

	dests := router.Resolve(&capture.Request{
		Headers: map[string]string{"x-batch-id": "batch-42"},
	})

	assert.Equal(t, filepath.Join("/data", "requests", "batch-42", "input.jsonl"), dests.Input)
	assert.Equal(t, filepath.Join("/data", "requests", "batch-42", "output.jsonl"), dests.Output)
}

func TestRouterHeaderLookupIsCaseInsensitive(t *testing.T) {
	router := NewRouter("/data", "X-Batch-Id")

	dests := router.Resolve(&capture.Request{
		Headers: map[string]string{"x-batch-id": "batch-42"},
	})

	assert.Contains(t, dests.Input, "batch-42")
}

func TestRouterFallsBackWithoutHeader(t *testing.T) {
	router := NewRouter("/data", "x-batch-id")

	for _, req := range []*capture.Request{
		{},
		{Headers: map[string]string{"x-batch-id": ""}},
	} {
		dests := router.Resolve(req)
		assert.Equal(t, filepath.Join("/data", "input.jsonl"), dests.Input)
		assert.Equal(t, filepath.Join("/data", "output.jsonl"), dests.Output)
	}
}

func TestRouterDisabledHeaderRouting(t *testing.T) {
	router := NewRouter("/data", "")

	dests := router.Resolve(&capture.Request{
		Headers: map[string]string{"x-batch-id": "batch-42"},
	})

	assert.Equal(t, filepath.Join("/data", "input.jsonl"), dests.Input)
}

func TestRouterIsDeterministic(t *testing.T) {
	router := NewRouter("/data", "x-batch-id")
	req := &capture.Request{Headers: map[string]string{"x-batch-id": "batch-42"}}

	assert.Equal(t, router.Resolve(req), router.Resolve(req))
}

func TestSafeSegment(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"batch-42", "batch-42"},
		{"batch/42", "batch_42"},
		{"  spaced out  ", "spaced_out"},
		{"../../etc/passwd", "etc_passwd"},
		{"...", "unknown"},
		{"", "unknown"},
		{"üñïçödé", "unknown"},
		{"a.b-c_d", "a.b-c_d"},
		{strings.Repeat("x", 200), strings.Repeat("x", 120)},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, safeSegment(tt.in), "input %q", tt.in)
	}
}
