package client

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"compress/zlib"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/d2verb/difyctl/internal/httpheaders"
	"github.com/d2verb/difyctl/internal/protocol"
)

const (
	contentTypeJSON       = "application/json"
	contentTypeForm       = "application/x-www-form-urlencoded"
	defaultAcceptEncoding = "gzip, deflate"
	maxErrorBody          = 512
)

// File is a file part of a multipart upload.
type File struct {
	Name        string
	Content     []byte
	ContentType string
}

type request struct {
	method  string
	path    string
	headers map[string]string
	body    map[string]any
	query   url.Values
	files   map[string]File
}

func jsonHeaders() map[string]string {
	return map[string]string{"Content-Type": contentTypeJSON}
}

type rawResponse struct {
	method     string
	path       string
	statusCode int
	body       []byte
}

// do performs a single-shot call bounded by the configured timeout and reads
// the whole body before returning.
func (c *Client) do(ctx context.Context, r request) (*rawResponse, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	log := c.logger.With("request_id", uuid.NewString(), "method", r.method, "path", r.path)

	httpReq, err := c.newRequest(reqCtx, r)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		log.Warn("plugin daemon request failed", "error", err)
		return nil, c.unreachable(ctx, err)
	}
	defer resp.Body.Close()

	body, err := decodedBody(resp)
	if err != nil {
		return nil, &ProtocolError{Path: r.path, Message: "failed to decode response body", Err: err}
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		log.Warn("reading plugin daemon response failed", "error", err)
		return nil, c.unreachable(ctx, err)
	}

	log.Debug("plugin daemon response", "status", resp.StatusCode, "bytes", len(data))
	return &rawResponse{method: r.method, path: r.path, statusCode: resp.StatusCode, body: data}, nil
}

// openStream starts a streaming call. Only dialing and response headers are
// time-bounded; the body is read incrementally by the returned lineReader.
func (c *Client) openStream(ctx context.Context, r request) (*lineReader, error) {
	log := c.logger.With("request_id", uuid.NewString(), "method", r.method, "path", r.path)

	httpReq, err := c.newRequest(ctx, r)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		log.Warn("plugin daemon stream request failed", "error", err)
		return nil, c.unreachable(ctx, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		log.Warn("plugin daemon stream rejected", "status", resp.StatusCode)
		return nil, &StatusError{Method: r.method, Path: r.path, StatusCode: resp.StatusCode}
	}

	body, err := decodedBody(resp)
	if err != nil {
		resp.Body.Close()
		return nil, &ProtocolError{Path: r.path, Message: "failed to decode response body", Err: err}
	}

	log.Debug("plugin daemon stream opened", "status", resp.StatusCode)
	return &lineReader{
		ctx:    ctx,
		client: c,
		body:   body,
		reader: bufio.NewReader(body),
	}, nil
}

// unreachable maps a transport failure to KindUnreachable unless the caller
// cancelled ctx itself.
func (c *Client) unreachable(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return &DaemonError{
		Kind:    KindUnreachable,
		Code:    protocol.CodeInnerError,
		Message: "request to plugin daemon service failed",
		Err:     err,
	}
}

func (c *Client) newRequest(ctx context.Context, r request) (*http.Request, error) {
	headers := httpheaders.Clone(r.headers)
	headers = httpheaders.Set(headers, "X-Api-Key", c.cfg.APIKey)
	headers = httpheaders.SetDefault(headers, "Accept-Encoding", defaultAcceptEncoding)

	body, contentType, err := encodeBody(headers, r.body, r.files)
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		headers = httpheaders.Set(headers, "Content-Type", contentType)
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, c.buildURL(r.path, r.query), reader)
	if err != nil {
		return nil, validationErrorf("request", "%v", err)
	}
	for name, values := range httpheaders.ToHTTP(headers) {
		req.Header[name] = values
	}
	return req, nil
}

func (c *Client) buildURL(path string, query url.Values) string {
	u := c.baseURL.JoinPath(path)
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

// encodeBody picks the body encoding: JSON only when the caller asked for it
// with an exact application/json Content-Type, multipart when files are
// attached and url-encoded form fields otherwise.
func encodeBody(headers map[string]string, fields map[string]any, files map[string]File) ([]byte, string, error) {
	if len(files) > 0 {
		return encodeMultipart(fields, files)
	}
	if fields == nil {
		return nil, "", nil
	}

	if ct, _ := httpheaders.Get(headers, "Content-Type"); ct == contentTypeJSON {
		data, err := json.Marshal(fields)
		if err != nil {
			return nil, "", validationErrorf("request body", "%v", err)
		}
		return data, "", nil
	}

	form := url.Values{}
	for k, v := range fields {
		for _, s := range formValues(v) {
			form.Add(k, s)
		}
	}
	contentType := ""
	if _, ok := httpheaders.Get(headers, "Content-Type"); !ok {
		contentType = contentTypeForm
	}
	return []byte(form.Encode()), contentType, nil
}

func encodeMultipart(fields map[string]any, files map[string]File) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for _, k := range sortedFieldNames(fields) {
		for _, s := range formValues(fields[k]) {
			if err := w.WriteField(k, s); err != nil {
				return nil, "", validationErrorf("request body", "%v", err)
			}
		}
	}

	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, field := range names {
		f := files[field]
		contentType := f.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, field, f.Name))
		h.Set("Content-Type", contentType)
		part, err := w.CreatePart(h)
		if err != nil {
			return nil, "", validationErrorf("request body", "%v", err)
		}
		if _, err := part.Write(f.Content); err != nil {
			return nil, "", validationErrorf("request body", "%v", err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", validationErrorf("request body", "%v", err)
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

func sortedFieldNames(fields map[string]any) []string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// formValues renders a field for form encodings. Slices repeat the field.
func formValues(v any) []string {
	switch x := v.(type) {
	case nil:
		return []string{""}
	case string:
		return []string{x}
	case bool:
		return []string{strconv.FormatBool(x)}
	case []string:
		return x
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Slice {
		out := make([]string, 0, rv.Len())
		for i := range rv.Len() {
			out = append(out, formValues(rv.Index(i).Interface())...)
		}
		return out
	}
	return []string{fmt.Sprint(v)}
}

// decodedBody undoes the Content-Encoding negotiated through Accept-Encoding.
// An empty body is returned as is whatever its declared encoding.
func decodedBody(resp *http.Response) (io.ReadCloser, error) {
	encoding := strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding")))
	if encoding == "" || encoding == "identity" {
		return resp.Body, nil
	}

	src := bufio.NewReader(resp.Body)
	if _, err := src.Peek(1); errors.Is(err, io.EOF) {
		return resp.Body, nil
	}

	switch encoding {
	case "gzip", "x-gzip":
		zr, err := gzip.NewReader(src)
		if err != nil {
			return nil, err
		}
		return &decodingBody{Reader: zr, decoder: zr, raw: resp.Body}, nil
	case "deflate":
		zr, err := zlib.NewReader(src)
		if err != nil {
			return nil, err
		}
		return &decodingBody{Reader: zr, decoder: zr, raw: resp.Body}, nil
	default:
		return nil, fmt.Errorf("unsupported content encoding %q", resp.Header.Get("Content-Encoding"))
	}
}

type decodingBody struct {
	io.Reader
	decoder io.Closer
	raw     io.Closer
}

func (b *decodingBody) Close() error {
	return errors.Join(b.decoder.Close(), b.raw.Close())
}

// lineReader yields non-empty lines of a streamed body with any SSE "data:"
// prefix removed. Lines have no length limit.
type lineReader struct {
	ctx     context.Context
	client  *Client
	body    io.ReadCloser
	reader  *bufio.Reader
	pending error
	closed  bool
}

// Next returns the next payload line, io.EOF at the end of the body, or the
// translated read failure.
func (l *lineReader) Next() (string, error) {
	for {
		if l.pending != nil {
			return "", l.pending
		}
		if l.closed {
			return "", io.EOF
		}

		raw, err := l.reader.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				l.pending = io.EOF
			} else {
				// A line cut short by a broken connection is not a payload.
				l.pending = l.client.unreachable(l.ctx, err)
				continue
			}
		}
		if line := payloadLine(raw); line != "" {
			return line, nil
		}
	}
}

func (l *lineReader) Close() error {
	if l.closed {
		return nil
	}
	l.closed = true
	return l.body.Close()
}

func payloadLine(raw string) string {
	line := strings.TrimSpace(raw)
	if rest, ok := strings.CutPrefix(line, "data:"); ok {
		line = strings.TrimSpace(rest)
	}
	return line
}
