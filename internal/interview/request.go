package interview

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	contentType     = "application/json"
	contentEncoding = "gzip, deflate, br"
)

// detailBody is the failure shape used by every endpoint.
type detailBody struct {
	Detail string `json:"detail"`
}

// filePart describes a single binary attachment for a multipart request.
type filePart struct {
	Field    string
	Filename string
	MIMEType string
	Data     []byte
}

func (c *Client) getJSON(path string, target any) error {
	req, err := http.NewRequestWithContext(c.ctx, http.MethodGet, c.APIURL+path, nil)
	if err != nil {
		return err
	}

	req = c.setHeaders(req)
	req.Header.Set("Content-Type", contentType)

	resp, err := c.request(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := readBody(resp)
	if err != nil {
		return err
	}

	if err := checkStatus(resp, data); err != nil {
		return err
	}

	if target == nil {
		return nil
	}

	if err := json.Unmarshal(data, target); err != nil {
		return fmt.Errorf("decoding response from %s: %w", path, err)
	}

	return nil
}

func (c *Client) postMultipart(path string, fields map[string]string, file *filePart, target any) error {
	var b bytes.Buffer
	w := multipart.NewWriter(&b)

	for key, val := range fields {
		field, err := w.CreateFormField(key)
		if err != nil {
			return err
		}

		if _, err = io.Copy(field, strings.NewReader(val)); err != nil {
			return err
		}
	}

	if file != nil {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, file.Field, file.Filename))
		header.Set("Content-Type", file.MIMEType)

		part, err := w.CreatePart(header)
		if err != nil {
			return err
		}

		if _, err = part.Write(file.Data); err != nil {
			return err
		}
	}

	w.Close()

	req, err := http.NewRequestWithContext(c.ctx, http.MethodPost, c.APIURL+path, &b)
	if err != nil {
		return err
	}

	req = c.setHeaders(req)
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := c.request(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := readBody(resp)
	if err != nil {
		return err
	}

	if err := checkStatus(resp, data); err != nil {
		return err
	}

	if target == nil {
		return nil
	}

	if err := json.Unmarshal(data, target); err != nil {
		return fmt.Errorf("decoding response from %s: %w", path, err)
	}

	return nil
}

func (c *Client) request(req *http.Request) (*http.Response, error) {
	c.logger.Debug("make request",
		zap.String("method", req.Method),
		zap.String("url", req.URL.String()),
		zap.String("request_id", req.Header.Get("X-Request-ID")),
	)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}

	return resp, nil
}

func (c *Client) setHeaders(req *http.Request) *http.Request {
	if c.token != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.token))
	}
	req.Header.Set("User-Agent", c.UserAgent)
	req.Header.Set("Accept-Encoding", contentEncoding)
	req.Header.Set("X-Request-ID", uuid.NewString())

	return req
}

func readBody(resp *http.Response) ([]byte, error) {
	var reader io.Reader = resp.Body
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gzipReader, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, err
		}
		defer gzipReader.Close()
		reader = gzipReader
	}

	return io.ReadAll(reader)
}

// checkStatus converts a non-2xx response into an APIError, extracting the
// server-provided detail message when the body carries one.
func checkStatus(resp *http.Response, body []byte) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	apiErr := &APIError{StatusCode: resp.StatusCode}

	var detail detailBody
	if err := json.Unmarshal(body, &detail); err == nil {
		apiErr.Detail = strings.TrimSpace(detail.Detail)
	}

	return apiErr
}
