package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheable(t *testing.T) {
	assert.True(t, cacheable(http.StatusOK, 100, 1024))
	assert.True(t, cacheable(http.StatusOK, 1024, 1024))
	// No limit configured: any size may be stored.
	assert.True(t, cacheable(http.StatusOK, 1<<30, 0))

	// A body past the capture limit sits truncated in the buffer and must
	// never be replayed.
	assert.False(t, cacheable(http.StatusOK, 1025, 1024))
	assert.False(t, cacheable(http.StatusNotFound, 100, 1024))
	assert.False(t, cacheable(http.StatusInternalServerError, 10, 1024))
}

func TestCaptureWriterTracksFullSize(t *testing.T) {
	rec := httptest.NewRecorder()
	cw := &captureWriter{ResponseWriter: rec, status: http.StatusOK, limit: 4}

	_, err := cw.Write([]byte("abcd"))
	require.NoError(t, err)
	_, err = cw.Write([]byte("ef"))
	require.NoError(t, err)

	// The buffer is capped at the limit, but size keeps counting so the
	// store step can tell the body was bigger than what it captured.
	assert.Equal(t, "abcd", cw.buf.String())
	assert.Equal(t, int64(6), cw.size)
	assert.False(t, cacheable(cw.status, cw.size, cw.limit))

	// The client still receives everything.
	assert.Equal(t, "abcdef", rec.Body.String())
}

func TestPayloadRoundTrip(t *testing.T) {
	hdr := http.Header{"Content-Type": []string{"application/json"}}
	payload, err := encodePayload(http.StatusOK, hdr, []byte(`{"ok":true}`))
	require.NoError(t, err)

	status, gotHdr, body, ok := decodePayload(payload)
	require.True(t, ok)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "application/json", gotHdr.Get("Content-Type"))
	assert.Equal(t, `{"ok":true}`, string(body))
}

func TestDecodePayloadShortBuffer(t *testing.T) {
	_, _, _, ok := decodePayload([]byte{0, 0, 0})
	assert.False(t, ok)
}
