package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"lin/internal/core"
)

// Page is one page of a paginated list.
type Page[T any] struct {
	Items []T
	Meta  core.PageMeta
}

// ParseResult is what the AI parsers return. Accepted is false when the
// backend judged the input unusable or the confidence too low; Data then
// holds the partial suggestion, if any, and Message says why.
type ParseResult[T any] struct {
	Data            T
	Accepted        bool
	Confidence      float64
	TranscribedText string
	Message         string
}

// Insights is free-form AI commentary; its shape varies by resource.
type Insights map[string]any

// Upload is a file sent as the multipart field "file".
type Upload struct {
	Name        string
	ContentType string
	Body        io.Reader
}

func resourcePath(base string, id uuid.UUID, rest ...string) string {
	return base + "/" + id.String() + strings.Join(rest, "")
}

func list[T any](ctx context.Context, c *Client, path string, q url.Values) (Page[T], error) {
	var items []T
	env, err := c.do(ctx, request{method: http.MethodGet, path: path, query: q}, &items)
	if err != nil {
		return Page[T]{}, err
	}
	return Page[T]{Items: items, Meta: env.Page()}, nil
}

func get[T any](ctx context.Context, c *Client, path string, q url.Values) (T, error) {
	var out T
	_, err := c.do(ctx, request{method: http.MethodGet, path: path, query: q}, &out)
	return out, err
}

// sendJSON builds a JSON request for payload and decodes the response data into T.
func sendJSON[T any](ctx context.Context, c *Client, method, path string, payload any) (T, error) {
	var out T
	r, err := jsonRequest(method, path, payload)
	if err != nil {
		return out, err
	}
	_, err = c.do(ctx, r, &out)
	return out, err
}

// remove issues a DELETE and ignores any body.
func (c *Client) remove(ctx context.Context, path string) error {
	_, err := c.do(ctx, request{method: http.MethodDelete, path: path}, nil)
	return err
}

// parseWith runs an AI parse request. success:false in a 2xx body is a
// rejected parse, not an error.
func parseWith[T any](ctx context.Context, c *Client, r request) (ParseResult[T], error) {
	var res ParseResult[T]
	resp, err := c.send(ctx, r)
	if err != nil {
		return res, err
	}
	if resp.status < 200 || resp.status >= 300 {
		return res, newAPIError(resp.status, resp.body)
	}
	env, err := decodeEnvelope(resp.body)
	if err != nil {
		return res, fmt.Errorf("%s %s: %w", r.method, r.path, err)
	}

	res.Accepted = env.Success
	res.Message = env.Message
	data := env.Data
	if isNull(data) {
		// Rejected parses carry the partial result under parsed_data.
		data = env.Extra["parsed_data"]
	}
	if !isNull(data) {
		if err := json.Unmarshal(data, &res.Data); err != nil {
			return res, fmt.Errorf("decode parse result: %w", err)
		}
		// The parser reports its confidence inside the data too.
		var inner struct {
			Confidence      *float64 `json:"confidence"`
			TranscribedText string   `json:"transcribed_text"`
		}
		if json.Unmarshal(data, &inner) == nil {
			if inner.Confidence != nil {
				res.Confidence = *inner.Confidence
			}
			res.TranscribedText = inner.TranscribedText
		}
	}
	if _, err := env.DecodeExtra("confidence", &res.Confidence); err != nil {
		return res, fmt.Errorf("decode confidence: %w", err)
	}
	if _, err := env.DecodeExtra("transcribed_text", &res.TranscribedText); err != nil {
		return res, fmt.Errorf("decode transcribed text: %w", err)
	}
	return res, nil
}

func parseText[T any](ctx context.Context, c *Client, path, text string) (ParseResult[T], error) {
	if strings.TrimSpace(text) == "" {
		return ParseResult[T]{}, &core.FieldError{Field: "text", Err: core.ErrRequired}
	}
	r, err := jsonRequest(http.MethodPost, path, map[string]string{"text": text})
	if err != nil {
		return ParseResult[T]{}, err
	}
	return parseWith[T](ctx, c, r)
}

func parseUpload[T any](ctx context.Context, c *Client, path string, up Upload) (ParseResult[T], error) {
	r, err := multipartRequest(path, up)
	if err != nil {
		return ParseResult[T]{}, err
	}
	return parseWith[T](ctx, c, r)
}

func multipartRequest(path string, up Upload) (request, error) {
	if up.Body == nil {
		return request{}, &core.FieldError{Field: "file", Err: core.ErrRequired}
	}
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	contentType := up.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	name := filepath.Base(up.Name)
	if name == "." || name == "/" {
		name = "upload"
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, name))
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	if err != nil {
		return request{}, fmt.Errorf("create multipart part: %w", err)
	}
	if _, err := io.Copy(part, up.Body); err != nil {
		return request{}, fmt.Errorf("read upload: %w", err)
	}
	if err := mw.Close(); err != nil {
		return request{}, fmt.Errorf("close multipart body: %w", err)
	}
	return request{
		method:      http.MethodPost,
		path:        path,
		body:        buf.Bytes(),
		contentType: mw.FormDataContentType(),
	}, nil
}
