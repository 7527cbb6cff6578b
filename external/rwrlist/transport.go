package rwrlist

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	crerr "github.com/cockroachdb/errors"
	"github.com/valyala/bytebufferpool"
	"github.com/valyala/fasthttp"

	"github.com/rwrpulse/rwrpulse/internal/platform/logging"
)

// The three transport failure classes callers can branch on. Parse problems
// never surface here; they are contained inside the payload parsers.
var (
	// ErrBadStatus marks a completed request answered with a non-2xx status.
	ErrBadStatus = crerr.New("rwrlist: upstream returned non-success status")
	// ErrTimeout marks a request aborted after its configured duration.
	ErrTimeout = crerr.New("rwrlist: request timed out")
	// ErrNetwork marks a connection-level failure (DNS, refused, offline).
	ErrNetwork = crerr.New("rwrlist: network failure")
)

const maxResponseBytes = 6 << 20

// Transport issues one GET against the master list and returns the raw body.
// It exists so the batch loop and the parsers are testable without a live
// upstream.
type Transport interface {
	Get(ctx context.Context, path string, query url.Values, timeout time.Duration) ([]byte, error)
}

type httpTransport struct {
	client  *fasthttp.Client
	baseURL string
	logger  *logging.Logger
	nonce   func() string
}

func newHTTPTransport(baseURL string, logger *logging.Logger) *httpTransport {
	if logger == nil {
		logger = logging.Default()
	}
	return &httpTransport{
		client: &fasthttp.Client{
			Name:                "rwrpulse",
			MaxResponseBodySize: maxResponseBytes,
		},
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		logger:  logger,
		nonce: func() string {
			return strconv.FormatInt(time.Now().UnixNano(), 10)
		},
	}
}

// Get runs one request bounded by its own deadline. DoTimeout aborts only
// this request, so a hanging batch cannot stall siblings beyond its slot.
func (t *httpTransport) Get(ctx context.Context, path string, query url.Values, timeout time.Duration) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %s aborted before send: %v", ErrTimeout, path, err)
	}
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	// A tighter caller deadline wins over the per-request default.
	if deadline, ok := ctx.Deadline(); ok {
		if remain := time.Until(deadline); remain < timeout {
			timeout = remain
		}
	}

	fullURL := t.buildURL(path, query)

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(fullURL)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set("Accept", "text/xml, text/html;q=0.9, */*;q=0.8")

	if err := t.client.DoTimeout(req, resp, timeout); err != nil {
		if isTimeoutErr(err) {
			callErr := fmt.Errorf("%w: get %s after %s", ErrTimeout, path, timeout)
			t.logger.WarnContext(ctx, "master list request timed out", "path", path, "timeout", timeout)
			return nil, callErr
		}
		callErr := fmt.Errorf("%w: get %s: %v", ErrNetwork, path, err)
		t.logger.WarnContext(ctx, "master list request failed", "path", path, "error", err)
		return nil, callErr
	}

	status := resp.StatusCode()
	if status < fasthttp.StatusOK || status >= fasthttp.StatusMultipleChoices {
		return nil, fmt.Errorf("%w: status=%d path=%s body=%s", ErrBadStatus, status, path, abbreviateBody(resp.Body()))
	}

	// The response buffer is pooled; copy before release.
	body := make([]byte, len(resp.Body()))
	copy(body, resp.Body())
	return body, nil
}

// buildURL appends the query plus the `_t` cache-busting nonce. The nonce is
// not semantic; it only defeats intermediary caches.
func (t *httpTransport) buildURL(path string, query url.Values) string {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	_, _ = buf.WriteString(t.baseURL)
	_, _ = buf.WriteString(path)

	values := url.Values{}
	for key, items := range query {
		for _, item := range items {
			values.Add(key, item)
		}
	}
	values.Set("_t", t.nonce())

	if encoded := values.Encode(); encoded != "" {
		_ = buf.WriteByte('?')
		_, _ = buf.WriteString(encoded)
	}

	return buf.String()
}

func isTimeoutErr(err error) bool {
	if stderrors.Is(err, fasthttp.ErrTimeout) {
		return true
	}
	var netErr net.Error
	if stderrors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return false
}

func abbreviateBody(raw []byte) string {
	const limit = 256
	body := strings.TrimSpace(string(raw))
	if len(body) <= limit {
		return body
	}
	return body[:limit] + "...(truncated)"
}
