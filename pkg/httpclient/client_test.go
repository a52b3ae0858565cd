package httpclient

import (
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type trackedBody struct {
	io.Reader
	closed *bool
}

func (b *trackedBody) Close() error {
	*b.closed = true
	return nil
}

// scriptedTransport returns one canned status per call and records whether
// each response body was closed.
type scriptedTransport struct {
	statuses []int
	closed   []*bool
}

func (t *scriptedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	status := t.statuses[0]
	t.statuses = t.statuses[1:]

	closed := new(bool)
	t.closed = append(t.closed, closed)
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{},
		Body:       &trackedBody{Reader: strings.NewReader("payload"), closed: closed},
	}, nil
}

func TestDoRetriesAndClosesAbandonedBodies(t *testing.T) {
	transport := &scriptedTransport{statuses: []int{
		http.StatusTooManyRequests,
		http.StatusTooManyRequests,
		http.StatusOK,
	}}
	client := New(
		WithHTTPClient(&http.Client{Transport: transport}),
		WithMaxRetries(3),
		WithBaseDelay(time.Millisecond),
	)

	req, err := http.NewRequest(http.MethodGet, "http://example.com/", nil)
	require.NoError(t, err)

	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.Len(t, transport.closed, 3)
	assert.True(t, *transport.closed[0])
	assert.True(t, *transport.closed[1])
	assert.False(t, *transport.closed[2])
}

func TestDoReturnsLastResponseWhenRetriesExhausted(t *testing.T) {
	transport := &scriptedTransport{statuses: []int{
		http.StatusTooManyRequests,
		http.StatusTooManyRequests,
	}}
	client := New(
		WithHTTPClient(&http.Client{Transport: transport}),
		WithMaxRetries(1),
		WithBaseDelay(time.Millisecond),
	)

	req, err := http.NewRequest(http.MethodGet, "http://example.com/", nil)
	require.NoError(t, err)

	resp, err := client.Do(req)
	require.Error(t, err)
	require.NotNil(t, resp)
	defer resp.Body.Close()

	var retryable *RetryableError
	require.ErrorAs(t, err, &retryable)
	assert.Equal(t, http.StatusTooManyRequests, retryable.StatusCode)

	// The earlier attempt's body was abandoned and must be closed.
	require.Len(t, transport.closed, 2)
	assert.True(t, *transport.closed[0])
	assert.False(t, *transport.closed[1])
}
