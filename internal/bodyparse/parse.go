package bodyparse

import (
	"encoding/json"
	"io"
	"mime"
	"net/url"
	"strings"

	"github.com/grenas405/genesis/internal/apperr"
	"github.com/grenas405/genesis/internal/pipeline"
	"github.com/grenas405/genesis/internal/reqctx"
)

// BodyStateKey is the reqctx.Context.Get key the parser materialises the
// decoded body under.
const BodyStateKey = "body"

// Part is one field of a multipart/form-data request: either a plain value
// (Filename == "") or an uploaded file's bytes.
type Part struct {
	Name        string
	Filename    string
	ContentType string
	Bytes       []byte
}

const defaultMaxMemory = 32 << 20 // 32MB, matches net/http's own default

// Middleware dispatches on the request's Content-Type and materialises
// ctx.state.body as the parsed value, passing through untouched when no
// body is present or the type isn't recognised. Parse failures surface as
// a Validation error on field "body" (spec §4.D).
func Middleware() pipeline.Middleware {
	return func(c *reqctx.Context, next pipeline.Next) error {
		r := c.Request()
		if r.Body == nil || r.ContentLength == 0 {
			return next(c)
		}

		mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
		if err != nil {
			return next(c)
		}

		switch {
		case mediaType == "application/json":
			if err := parseJSON(c); err != nil {
				return err
			}
		case mediaType == "application/x-www-form-urlencoded":
			if err := parseForm(c); err != nil {
				return err
			}
		case mediaType == "multipart/form-data":
			if err := parseMultipart(c); err != nil {
				return err
			}
		case strings.HasPrefix(mediaType, "text/"):
			if err := parseText(c); err != nil {
				return err
			}
		}
		return next(c)
	}
}

func parseJSON(c *reqctx.Context) error {
	raw, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return apperr.NewValidation("body", nil, "failed to read request body")
	}
	if len(strings.TrimSpace(string(raw))) == 0 {
		return nil
	}
	var value any
	if err := json.Unmarshal(raw, &value); err != nil {
		return apperr.NewValidation("body", string(raw), "invalid JSON body")
	}
	c.Set(BodyStateKey, value)
	return nil
}

func parseForm(c *reqctx.Context) error {
	raw, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return apperr.NewValidation("body", nil, "failed to read request body")
	}
	values, err := url.ParseQuery(string(raw))
	if err != nil {
		return apperr.NewValidation("body", string(raw), "invalid form body")
	}
	flat := make(map[string]any, len(values))
	for k, v := range values {
		if len(v) > 0 {
			flat[k] = v[0]
		}
	}
	c.Set(BodyStateKey, flat)
	return nil
}

func parseMultipart(c *reqctx.Context) error {
	r := c.Request()
	if err := r.ParseMultipartForm(defaultMaxMemory); err != nil {
		return apperr.NewValidation("body", nil, "invalid multipart body")
	}
	var parts []Part
	for name, values := range r.MultipartForm.Value {
		for _, v := range values {
			parts = append(parts, Part{Name: name, ContentType: "text/plain", Bytes: []byte(v)})
		}
	}
	for name, headers := range r.MultipartForm.File {
		for _, fh := range headers {
			f, err := fh.Open()
			if err != nil {
				continue
			}
			data, err := io.ReadAll(f)
			f.Close()
			if err != nil {
				continue
			}
			ct := fh.Header.Get("Content-Type")
			parts = append(parts, Part{Name: name, Filename: fh.Filename, ContentType: ct, Bytes: data})
		}
	}
	c.Set(BodyStateKey, parts)
	return nil
}

func parseText(c *reqctx.Context) error {
	raw, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return apperr.NewValidation("body", nil, "failed to read request body")
	}
	c.Set(BodyStateKey, string(raw))
	return nil
}

// Body retrieves the materialised body value, if any parser ran.
func Body(c *reqctx.Context) (any, bool) {
	return c.Get(BodyStateKey)
}
