package scanner

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"
	"strings"
	"time"

	"idscan/internal/models"
)

const extractPath = "/api/ai-extract"

// StatusError is a non-2xx answer from the extraction endpoint.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("extract: status %d: %s", e.Status, e.Body)
}

// Client posts documents to the extraction endpoint.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
}

// Extract sends an image as a data URL in the "image" field, or a PDF as the
// "pdf" file part with its name, size and type.
func (c *Client) Extract(ctx context.Context, doc Document) (models.ExtractionResult, error) {
	body, contentType, err := encodeDocument(doc)
	if err != nil {
		return models.ExtractionResult{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+extractPath, body)
	if err != nil {
		return models.ExtractionResult{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.http.Do(req)
	if err != nil {
		return models.ExtractionResult{}, fmt.Errorf("post %s: %w", extractPath, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return models.ExtractionResult{}, &StatusError{Status: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}
	var r models.ExtractionResult
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return models.ExtractionResult{}, fmt.Errorf("decode result: %w", err)
	}
	return r, nil
}

func encodeDocument(doc Document) (io.Reader, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	if doc.IsPDF() {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="pdf"; filename=%q`, doc.Name))
		h.Set("Content-Type", doc.MIMEType)
		part, err := mw.CreatePart(h)
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(doc.Data); err != nil {
			return nil, "", err
		}
		for k, v := range map[string]string{
			"fileName": doc.Name,
			"fileSize": strconv.Itoa(len(doc.Data)),
			"fileType": doc.MIMEType,
		} {
			if err := mw.WriteField(k, v); err != nil {
				return nil, "", err
			}
		}
	} else {
		dataURL := "data:" + doc.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(doc.Data)
		if err := mw.WriteField("image", dataURL); err != nil {
			return nil, "", err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return &buf, mw.FormDataContentType(), nil
}
