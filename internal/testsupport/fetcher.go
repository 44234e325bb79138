package testsupport

import (
	"bytes"
	"context"
	"io"
	"strconv"
	"sync"

	"avatardl/internal/services"
	"avatardl/internal/transfer"
)

// Reply scripts the response for one URL.
type Reply struct {
	Body        string
	ContentType string
	// Status other than 0 or 200 produces a transfer error.
	Status int
	Err    error
	// Gate, when set, blocks the fetch until it is closed or ctx ends.
	Gate chan struct{}
	// HideLength omits the content length.
	HideLength bool
}

// ScriptedFetcher is a transfer.Fetcher that answers from a table.
type ScriptedFetcher struct {
	mu      sync.Mutex
	replies map[string]Reply
	calls   map[string]int
}

var _ transfer.Fetcher = (*ScriptedFetcher)(nil)

// NewScriptedFetcher returns a fetcher with no scripted URLs.
func NewScriptedFetcher() *ScriptedFetcher {
	return &ScriptedFetcher{replies: make(map[string]Reply), calls: make(map[string]int)}
}

// Set scripts the reply for url, replacing any earlier one.
func (f *ScriptedFetcher) Set(url string, reply Reply) {
	f.mu.Lock()
	f.replies[url] = reply
	f.mu.Unlock()
}

// Calls reports how many times url was fetched.
func (f *ScriptedFetcher) Calls(url string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[url]
}

func (f *ScriptedFetcher) Fetch(ctx context.Context, url string) (*transfer.Response, error) {
	f.mu.Lock()
	reply, ok := f.replies[url]
	f.calls[url]++
	f.mu.Unlock()

	if !ok {
		return nil, services.Wrap(services.ErrTransfer, "scripted", "fetch", "HTTP 404 Not Found", nil)
	}
	if reply.Gate != nil {
		select {
		case <-reply.Gate:
		case <-ctx.Done():
			return nil, services.Wrap(services.ErrTransfer, "scripted", "fetch", url, ctx.Err())
		}
	}
	if reply.Err != nil {
		return nil, reply.Err
	}
	if reply.Status != 0 && reply.Status != 200 {
		return nil, services.Wrap(services.ErrTransfer, "scripted", "fetch", "HTTP status "+strconv.Itoa(reply.Status), nil)
	}
	length := int64(len(reply.Body))
	if reply.HideLength {
		length = -1
	}
	return &transfer.Response{
		Body:          io.NopCloser(bytes.NewReader([]byte(reply.Body))),
		ContentLength: length,
		ContentType:   reply.ContentType,
		FinalURL:      url,
	}, nil
}
