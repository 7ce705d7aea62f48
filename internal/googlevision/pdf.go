// Package googlevision performs document OCR on PDFs with Cloud Vision.
package googlevision

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	vision "cloud.google.com/go/vision/v2/apiv1"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"google.golang.org/api/option"
)

// Vision's synchronous file API accepts at most five pages per request.
const maxPages = 5

// PDFReader extracts text from the first pages of a PDF.
type PDFReader struct {
	client *vision.ImageAnnotatorClient
	pages  []int32
	logger *slog.Logger
}

// NewPDFReader builds a client from a credentials file, or from the default
// application credentials when credPath is empty.
func NewPDFReader(ctx context.Context, credPath string, pages int, logger *slog.Logger) (*PDFReader, error) {
	var (
		client *vision.ImageAnnotatorClient
		err    error
	)
	if credPath != "" {
		client, err = vision.NewImageAnnotatorClient(ctx, option.WithCredentialsFile(credPath))
	} else {
		client, err = vision.NewImageAnnotatorClient(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to init OCR client: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	if pages <= 0 || pages > maxPages {
		pages = maxPages
	}
	p := &PDFReader{client: client, logger: logger}
	for i := 1; i <= pages; i++ {
		p.pages = append(p.pages, int32(i))
	}
	return p, nil
}

func (p *PDFReader) Close() error { return p.client.Close() }

// ReadText runs DOCUMENT_TEXT_DETECTION and joins page texts with newlines.
func (p *PDFReader) ReadText(ctx context.Context, data []byte) (string, error) {
	if len(data) == 0 {
		return "", errors.New("empty pdf")
	}
	req := &visionpb.BatchAnnotateFilesRequest{
		Requests: []*visionpb.AnnotateFileRequest{{
			InputConfig: &visionpb.InputConfig{Content: data, MimeType: "application/pdf"},
			Features:    []*visionpb.Feature{{Type: visionpb.Feature_DOCUMENT_TEXT_DETECTION}},
			Pages:       p.pages,
		}},
	}
	resp, err := p.client.BatchAnnotateFiles(ctx, req)
	if err != nil {
		return "", fmt.Errorf("vision annotate files: %w", err)
	}

	var b strings.Builder
	for _, file := range resp.GetResponses() {
		if e := file.GetError(); e != nil {
			return "", fmt.Errorf("vision file error: %s", e.GetMessage())
		}
		for i, page := range file.GetResponses() {
			if e := page.GetError(); e != nil {
				p.logger.Warn("vision.pdf.page_error", "page", i+1, "error", e.GetMessage())
				continue
			}
			if t := page.GetFullTextAnnotation().GetText(); t != "" {
				b.WriteString(t)
				b.WriteString("\n")
			}
		}
	}
	return strings.TrimSpace(b.String()), nil
}
