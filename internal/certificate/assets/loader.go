// Package assets resolves template image sources into bytes. Export must never
// rasterize against a template that is still loading, so loaders block until
// the asset is complete or a bounded timeout elapses.
package assets

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	dErrors "veriseal/pkg/domain-errors"
)

// MemoryLoader serves preloaded assets. Used by tests and by deployments that
// ship template images with the binary.
type MemoryLoader struct {
	mu     sync.RWMutex
	assets map[string][]byte
}

func NewMemoryLoader() *MemoryLoader {
	return &MemoryLoader{assets: make(map[string][]byte)}
}

// Add registers asset bytes under a source name.
func (l *MemoryLoader) Add(source string, data []byte) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.assets[source] = append([]byte(nil), data...)
}

func (l *MemoryLoader) WaitUntilLoaded(_ context.Context, source string, _ time.Duration) ([]byte, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	data, ok := l.assets[source]
	if !ok {
		return nil, dErrors.Newf(dErrors.CodeRender, "asset %q is not loaded", source)
	}
	return append([]byte(nil), data...), nil
}

// HTTPLoader fetches assets over HTTP and caches completed downloads. A source
// is only cached once fully read; a timed-out download returns whatever
// arrived together with the timeout error and is never cached.
type HTTPLoader struct {
	client *http.Client

	mu    sync.RWMutex
	cache map[string][]byte
}

type HTTPOption func(*HTTPLoader)

func WithHTTPClient(client *http.Client) HTTPOption {
	return func(l *HTTPLoader) {
		l.client = client
	}
}

func NewHTTPLoader(opts ...HTTPOption) *HTTPLoader {
	l := &HTTPLoader{
		client: http.DefaultClient,
		cache:  make(map[string][]byte),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *HTTPLoader) WaitUntilLoaded(ctx context.Context, source string, timeout time.Duration) ([]byte, error) {
	l.mu.RLock()
	cached, ok := l.cache[source]
	l.mu.RUnlock()
	if ok {
		return cached, nil
	}

	loadCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(loadCtx, http.MethodGet, source, nil)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeRender, "build asset request")
	}
	resp, err := l.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, dErrors.Wrap(err, dErrors.CodeTimeout, fmt.Sprintf("asset %q did not load in %s", source, timeout))
		}
		return nil, dErrors.Wrap(err, dErrors.CodeRender, "fetch asset")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, dErrors.Newf(dErrors.CodeRender, "asset %q returned status %d", source, resp.StatusCode)
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, resp.Body); err != nil {
		if errors.Is(err, context.DeadlineExceeded) || loadCtx.Err() != nil {
			// Partial body: hand back what arrived so the caller can apply
			// its degraded-output policy.
			return buf.Bytes(), dErrors.Wrap(err, dErrors.CodeTimeout, fmt.Sprintf("asset %q did not finish loading in %s", source, timeout))
		}
		return nil, dErrors.Wrap(err, dErrors.CodeRender, "read asset body")
	}

	data := buf.Bytes()
	l.mu.Lock()
	l.cache[source] = data
	l.mu.Unlock()
	return data, nil
}
