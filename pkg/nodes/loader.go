package nodes

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"

	"github.com/sandrolain/gometapath/pkg/item"
)

// Loader loads documents from the local file system or over HTTP(S).
type Loader struct {
	client *http.Client
	logger *slog.Logger
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithHTTPClient sets the client used for http and https URIs.
func WithHTTPClient(c *http.Client) LoaderOption {
	return func(l *Loader) { l.client = c }
}

// WithLoaderLogger sets the logger.
func WithLoaderLogger(logger *slog.Logger) LoaderOption {
	return func(l *Loader) { l.logger = logger }
}

// NewLoader creates a loader.
func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{client: http.DefaultClient, logger: slog.Default()}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// LoadDocument loads and parses the document at an absolute URI.
func (l *Loader) LoadDocument(ctx context.Context, uri *url.URL) (item.NodeItem, error) {
	l.logger.DebugContext(ctx, "loading document", "uri", uri.String())

	var (
		r   io.ReadCloser
		err error
	)
	switch uri.Scheme {
	case "", "file":
		r, err = os.Open(uri.Path)
	case "http", "https":
		r, err = l.get(ctx, uri)
	default:
		return nil, fmt.Errorf("unsupported URI scheme %q", uri.Scheme)
	}
	if err != nil {
		return nil, err
	}
	defer r.Close()

	doc, err := Parse(r, FormatFromPath(uri.Path), uri.String())
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func (l *Loader) get(ctx context.Context, uri *url.URL) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri.String(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("GET %s: %s", uri, resp.Status)
	}
	return resp.Body, nil
}
