package client

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"

	"github.com/jewelcart/storefront"
)

// File is one part of a multipart upload
type File struct {
	FieldName   string
	FileName    string
	ContentType string
	Content     []byte
}

// Upload sends files and fields as multipart/form-data. The body is encoded once so that
// retries resubmit identical bytes.
func (c *Client) Upload(ctx context.Context, path string, files []File, fields map[string]string) (*Result, error) {
	body, contentType, err := encodeMultipart(files, fields)
	if err != nil {
		return nil, fmt.Errorf("failed to encode upload to %s: %w", path, err)
	}

	req := storefront.NewRequest(http.MethodPost, path, nil, body)
	req.Multipart = true
	req.BodyContentType = contentType

	return c.Do(ctx, req)
}

func encodeMultipart(files []File, fields map[string]string) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for name, value := range fields {
		if err := w.WriteField(name, value); err != nil {
			return nil, "", err
		}
	}

	for _, f := range files {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, f.FieldName, f.FileName))
		contentType := f.ContentType
		if contentType == "" {
			contentType = http.DetectContentType(f.Content)
		}
		header.Set("Content-Type", contentType)

		part, err := w.CreatePart(header)
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(f.Content); err != nil {
			return nil, "", err
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}

	return buf.Bytes(), w.FormDataContentType(), nil
}
