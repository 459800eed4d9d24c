package viewer

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	_ "golang.org/x/image/webp"
)

// ImageLoader resolves an image reference (URL or data URI) to a decoded image.
type ImageLoader interface {
	Load(ctx context.Context, ref string) (image.Image, error)
}

var (
	// ErrEmptyRef is returned for an empty image reference.
	ErrEmptyRef = errors.New("empty image reference")
	// ErrHostNotAllowed is returned for a URL outside the allowed hosts.
	ErrHostNotAllowed = errors.New("image host not allowed")
	// ErrImageTooLarge is returned for images over the byte or pixel limits.
	ErrImageTooLarge = errors.New("image too large")
)

// maxImageBytes caps a downloaded image.
const maxImageBytes = 20 << 20

// HTTPLoader fetches images over HTTP(S) and decodes data URIs inline.
// PNG, JPEG and WebP are supported. Images wider or taller than the
// render limit are rejected from their header, before the pixels are
// decoded.
type HTTPLoader struct {
	Client  *http.Client
	Timeout time.Duration
	// AllowedHosts restricts fetches, redirects included, to these hosts
	// and their subdomains. Empty allows any host.
	AllowedHosts []string
}

// NewHTTPLoader returns a loader with its own client and per-image timeout.
func NewHTTPLoader(timeout time.Duration, allowedHosts ...string) *HTTPLoader {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	l := &HTTPLoader{Timeout: timeout, AllowedHosts: allowedHosts}
	l.Client = &http.Client{
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 5 {
				return errors.New("too many redirects")
			}
			return l.checkURL(req.URL)
		},
	}
	return l
}

func (l *HTTPLoader) checkURL(u *url.URL) error {
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported image scheme %q", u.Scheme)
	}
	if len(l.AllowedHosts) == 0 {
		return nil
	}
	host := strings.ToLower(u.Hostname())
	for _, h := range l.AllowedHosts {
		h = strings.ToLower(h)
		if host == h || strings.HasSuffix(host, "."+h) {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrHostNotAllowed, host)
}

func (l *HTTPLoader) Load(ctx context.Context, ref string) (image.Image, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, ErrEmptyRef
	}
	if strings.HasPrefix(ref, "data:") {
		return decodeDataURI(ref)
	}
	u, err := url.Parse(ref)
	if err != nil {
		return nil, fmt.Errorf("parse image url: %w", err)
	}
	if err := l.checkURL(u); err != nil {
		return nil, err
	}
	if l.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.Timeout)
		defer cancel()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	client := l.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", ref, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: status %d", ref, resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", ref, err)
	}
	if len(data) > maxImageBytes {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", ErrImageTooLarge, ref, maxImageBytes)
	}
	img, err := decodeBounded(data)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", ref, err)
	}
	return img, nil
}

// decodeBounded reads the image header first so oversized images fail
// before their pixel buffer is allocated.
func decodeBounded(data []byte) (image.Image, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	if cfg.Width > maxSide || cfg.Height > maxSide {
		return nil, fmt.Errorf("%w: %dx%d", ErrImageTooLarge, cfg.Width, cfg.Height)
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	return img, err
}

func decodeDataURI(ref string) (image.Image, error) {
	meta, payload, ok := strings.Cut(strings.TrimPrefix(ref, "data:"), ",")
	if !ok {
		return nil, errors.New("malformed data uri")
	}
	var data []byte
	if strings.HasSuffix(meta, ";base64") {
		var err error
		data, err = base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return nil, fmt.Errorf("decode data uri: %w", err)
		}
	} else {
		data = []byte(payload)
	}
	img, err := decodeBounded(data)
	if err != nil {
		return nil, fmt.Errorf("decode data uri image: %w", err)
	}
	return img, nil
}
