package calendar

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"time"

	"github.com/go-resty/resty/v2"
	t "github.com/quesurifn/ics-calendar-relay/types"
	"go.uber.org/zap"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

const (
	DefaultBaseURL   = "https://www.recurse.com"
	DefaultPath      = "/calendar/events.ics"
	DefaultScope     = "me"
	DefaultUserAgent = "ics-calendar-relay/1.0"
)

// ErrUpstream wraps every failure to get a feed from the upstream service.
var ErrUpstream = errors.New("upstream fetch failed")

type Options struct {
	BaseURL   string
	Path      string
	Scope     string
	UserAgent string
	// Timeout of zero leaves the transport defaults in place.
	Timeout time.Duration
}

type Calendar struct {
	Logger *zap.Logger

	client *resty.Client
	path   string
	scope  string
}

func New(logger *zap.Logger, opts Options) *Calendar {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Path == "" {
		opts.Path = DefaultPath
	}
	if opts.Scope == "" {
		opts.Scope = DefaultScope
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}

	client := resty.New().
		SetBaseURL(opts.BaseURL).
		SetHeader("User-Agent", opts.UserAgent).
		SetHeader("Accept", "text/calendar, text/plain;q=0.9, */*;q=0.1").
		SetRetryCount(0)
	if opts.Timeout > 0 {
		client.SetTimeout(opts.Timeout)
	}

	return &Calendar{
		Logger: logger,
		client: client,
		path:   opts.Path,
		scope:  opts.Scope,
	}
}

// FetchCalendar downloads the feed for token and returns it as UTF-8 text.
func (c *Calendar) FetchCalendar(ctx context.Context, token string) (string, error) {
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParam("token", token).
		SetQueryParam("scope", c.scope).
		SetDoNotParseResponse(true).
		Get(c.path)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrUpstream, err)
	}

	body := resp.RawBody()
	defer body.Close()

	if !resp.IsSuccess() {
		return "", fmt.Errorf("%w: status %s", ErrUpstream, resp.Status())
	}

	reader := transform.NewReader(body, decoder(resp.Header().Get("Content-Type")))

	data, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("%w: read body: %w", ErrUpstream, err)
	}

	c.Logger.Debug("FetchCalendar",
		zap.Int("status", resp.StatusCode()),
		zap.Int("bytes", len(data)),
	)

	return string(data), nil
}

// decoder turns a body in the charset named by contentType into UTF-8.
// A byte order mark wins over the header and UTF-8 is the fallback.
func decoder(contentType string) transform.Transformer {
	var enc encoding.Encoding = unicode.UTF8
	if _, params, err := mime.ParseMediaType(contentType); err == nil {
		if e, _ := charset.Lookup(params["charset"]); e != nil {
			enc = e
		}
	}
	return unicode.BOMOverride(enc.NewDecoder())
}

// FilteredCalendar fetches the feed for token and strips cancelled events.
func (c *Calendar) FilteredCalendar(ctx context.Context, token string) (string, t.FilterStats, error) {
	feed, err := c.FetchCalendar(ctx, token)
	if err != nil {
		return "", t.FilterStats{}, err
	}

	filtered, stats := FilterString(feed)

	c.Logger.Info("FilteredCalendar",
		zap.Int("segments", stats.Segments),
		zap.Int("kept", stats.Kept()),
		zap.Int("removed", stats.Removed),
		zap.Bool("repaired", stats.Repaired),
	)

	return filtered, stats, nil
}
