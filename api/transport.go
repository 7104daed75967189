package api

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/andybalholm/brotli"
)

// decodingTransport advertises br and gzip and decompresses the response body
// before it reaches the client. Content-Encoding is removed and Content-Length
// updated to match the decoded body.
type decodingTransport struct {
	base http.RoundTripper
}

func newDecodingTransport(base http.RoundTripper) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	return &decodingTransport{base: base}
}

// RoundTrip implements the http.RoundTripper interface.
func (t *decodingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("Accept-Encoding") == "" {
		req = req.Clone(req.Context())
		req.Header.Set("Accept-Encoding", "br, gzip")
	}

	res, err := t.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}

	if err := decodeBody(res); err != nil {
		res.Body.Close()
		return nil, err
	}
	return res, nil
}

// decodeBody replaces a br or gzip encoded body with its decoded content.
// Other encodings are left untouched.
func decodeBody(res *http.Response) error {
	if res.Body == nil || res.Body == http.NoBody {
		return nil
	}

	var reader io.Reader
	switch res.Header.Get("Content-Encoding") {
	case "gzip":
		gzipReader, err := gzip.NewReader(res.Body)
		if err != nil {
			return fmt.Errorf("creating gzip reader : %w", err)
		}
		defer gzipReader.Close()
		reader = gzipReader
	case "br":
		reader = brotli.NewReader(res.Body)
	default:
		return nil
	}

	decompressedBody, err := io.ReadAll(reader)
	if err != nil {
		return fmt.Errorf("reading %s content : %w", res.Header.Get("Content-Encoding"), err)
	}
	res.Body.Close()

	res.Body = io.NopCloser(bytes.NewReader(decompressedBody))
	res.ContentLength = int64(len(decompressedBody))
	res.Header.Set("Content-Length", strconv.Itoa(len(decompressedBody)))
	res.Header.Del("Content-Encoding")
	res.Uncompressed = true
	return nil
}
