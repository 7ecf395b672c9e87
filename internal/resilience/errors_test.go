package resilience

import (
	"errors"
	"fmt"
	"net"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain", errors.New("bad meta document"), false},
		{"503 status", &StatusError{URL: "http://x/meta.json", StatusCode: 503}, true},
		{"404 status", &StatusError{URL: "http://x/meta.json", StatusCode: 404}, false},
		{"wrapped status", fmt.Errorf("load: %w", &StatusError{StatusCode: 429}), true},
		{"conn reset", fmt.Errorf("read tcp: %w", syscall.ECONNRESET), true},
		{"conn refused", fmt.Errorf("dial tcp: %w", syscall.ECONNREFUSED), true},
		{"dns timeout", &net.DNSError{IsTimeout: true, Err: "timeout"}, true},
		{"string pattern", errors.New("write: broken pipe"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}

func TestIsTransientHTTPStatus(t *testing.T) {
	for _, code := range []int{408, 429, 500, 502, 503, 504} {
		assert.True(t, IsTransientHTTPStatus(code), "status %d", code)
	}
	for _, code := range []int{200, 204, 400, 401, 403, 404} {
		assert.False(t, IsTransientHTTPStatus(code), "status %d", code)
	}
}

func TestStatusError_Message(t *testing.T) {
	err := &StatusError{URL: "http://tiles/meta.json", StatusCode: 502}
	assert.Equal(t, "upstream http://tiles/meta.json returned 502", err.Error())
}
