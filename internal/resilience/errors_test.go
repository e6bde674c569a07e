package resilience

import (
	"fmt"
	"syscall"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
)

func TestIsTransient(t *testing.T) {
	assert.False(t, IsTransient(nil))
	assert.False(t, IsTransient(eris.New("validation failed")))
	assert.False(t, IsTransient(fmt.Errorf("write tcp: broken pipe")))

	assert.True(t, IsTransient(NewTransientError(eris.New("rate limited"), 429)))
	assert.True(t, IsTransient(fmt.Errorf("call failed: %w", NewTransientError(eris.New("down"), 503))))
	assert.True(t, IsTransient(syscall.ECONNREFUSED))
	assert.True(t, IsTransient(fmt.Errorf("read tcp: connection reset by peer")))
	assert.True(t, IsTransient(fmt.Errorf("dial tcp: lookup shop.example.com: no such host")))
	assert.True(t, IsTransient(fmt.Errorf("net/http: TLS handshake timeout")))
}

func TestIsTransientHTTPStatus(t *testing.T) {
	for _, code := range []int{408, 429, 500, 502, 503, 504} {
		assert.True(t, IsTransientHTTPStatus(code), "status %d", code)
	}
	for _, code := range []int{200, 301, 400, 401, 403, 404, 410} {
		assert.False(t, IsTransientHTTPStatus(code), "status %d", code)
	}
}

func TestTransientErrorUnwrap(t *testing.T) {
	base := eris.New("service unavailable")
	te := NewTransientError(eris.Wrap(base, "fetch"), 503)

	assert.True(t, eris.Is(te, base))
	assert.Contains(t, te.Error(), "service unavailable")
}
