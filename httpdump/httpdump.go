// Package httpdump renders HTTP bodies for diagnostics.
// It is used to attach a readable excerpt of a failed response to API errors
// and to dump traffic when debug logging is enabled.
package httpdump

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httputil"
	"strings"
	"unicode/utf8"

	"github.com/beevik/etree"
	"github.com/gabriel-vasile/mimetype"
	"github.com/yosssi/gohtml"
)

// DefaultExcerptLimit is the number of bytes kept by Excerpt when no limit is given.
const DefaultExcerptLimit = 2048

// Prettify indents a JSON, XML or HTML body.
// It returns an empty slice when the body is none of these.
func Prettify(bodyBytes []byte) ([]byte, error) {
	if len(bodyBytes) == 0 {
		return []byte{}, nil
	}

	trimmedBody := bytes.TrimSpace(bodyBytes)

	var jsonData any
	if err := json.Unmarshal(trimmedBody, &jsonData); err == nil {
		output, err := json.MarshalIndent(jsonData, "", "  ")
		if err != nil {
			return []byte{}, fmt.Errorf("remarshalling JSON : %w", err)
		}
		return output, nil
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(trimmedBody); err == nil && doc.Root() != nil {
		doc.Indent(1)
		var output bytes.Buffer
		if _, err := doc.WriteTo(&output); err != nil {
			return []byte{}, fmt.Errorf("writing indented XML : %w", err)
		}
		return output.Bytes(), nil
	}

	// Error pages from proxies in front of the API are usually HTML.
	contentType := mimetype.Detect(trimmedBody).String()
	if strings.Contains(contentType, "text/html") ||
		(bytes.HasPrefix(trimmedBody, []byte("<")) && !bytes.HasPrefix(trimmedBody, []byte("<?xml"))) {
		output := gohtml.FormatBytes(trimmedBody)
		if !bytes.Equal(output, trimmedBody) && len(output) > 0 {
			return output, nil
		}
	}

	return []byte{}, nil
}

// Excerpt returns the prettified body, or the raw body when it cannot be prettified,
// cut to at most limit bytes on a rune boundary. A limit <= 0 uses DefaultExcerptLimit.
func Excerpt(body []byte, limit int) string {
	if limit <= 0 {
		limit = DefaultExcerptLimit
	}

	text := body
	if pretty, err := Prettify(body); err == nil && len(pretty) > 0 {
		text = pretty
	}
	text = bytes.TrimSpace(text)

	if len(text) <= limit {
		return string(text)
	}

	cut := limit
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return string(text[:cut]) + "..."
}

// DumpResponse dumps res and resets its body so it can still be consumed.
// It returns the raw dump and, when the body can be prettified, a prettified dump.
func DumpResponse(res *http.Response) (rawDump []byte, prettyDump string, err error) {
	responseDump, err := httputil.DumpResponse(res, false)
	if err != nil {
		return []byte{}, "", fmt.Errorf("dumping response : %w", err)
	}

	if res.Body == nil {
		return responseDump, "", nil
	}

	bodyBytes, err := io.ReadAll(res.Body)
	if err != nil {
		return []byte{}, "", fmt.Errorf("reading response body : %w", err)
	}
	res.Body.Close()
	res.Body = io.NopCloser(bytes.NewReader(bodyBytes))

	return dump(responseDump, bodyBytes)
}

// DumpRequest dumps req and resets its body so it can still be sent.
func DumpRequest(req *http.Request) (rawDump []byte, prettyDump string, err error) {
	requestDump, err := httputil.DumpRequest(req, false)
	if err != nil {
		return []byte{}, "", fmt.Errorf("dumping request : %w", err)
	}

	if req.Body == nil || req.Body == http.NoBody {
		return requestDump, "", nil
	}

	bodyBytes, err := io.ReadAll(req.Body)
	if err != nil {
		return []byte{}, "", fmt.Errorf("reading request body : %w", err)
	}
	req.Body.Close()
	req.Body = io.NopCloser(bytes.NewReader(bodyBytes))

	return dump(requestDump, bodyBytes)
}

func dump(head, body []byte) ([]byte, string, error) {
	fullDump := make([]byte, 0, len(head)+len(body))
	fullDump = append(fullDump, head...)
	fullDump = append(fullDump, body...)

	prettified, err := Prettify(body)
	if err != nil || len(prettified) == 0 {
		return fullDump, "", nil
	}

	return fullDump, string(head) + string(prettified), nil
}
