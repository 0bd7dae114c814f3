package report

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

// maxPDFBytes bounds a converted document.
const maxPDFBytes = 20 << 20

// ErrPDFTooLarge reports a conversion whose output exceeds the size limit.
var ErrPDFTooLarge = errors.New("rendered pdf exceeds size limit")

// PageOptions are the Chromium print settings sent with every conversion.
type PageOptions struct {
	PaperWidth      string
	PaperHeight     string
	Margin          string
	PrintBackground bool
}

// A4 is the page format used for invoices.
var A4 = PageOptions{PaperWidth: "8.27", PaperHeight: "11.7", Margin: "0", PrintBackground: true}

// Client wraps interactions with the Gotenberg API.
type Client struct {
	baseURL    string
	page       PageOptions
	maxBytes   int64
	httpClient *http.Client
}

// NewClient constructs a new client.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		page:     A4,
		maxBytes: maxPDFBytes,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Ping checks if the remote Gotenberg service is available.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/health", c.baseURL), nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("gotenberg returned status %d", resp.StatusCode)
	}
	return nil
}

// RenderHTML converts raw HTML into a PDF document using Gotenberg.
func (c *Client) RenderHTML(ctx context.Context, html string) ([]byte, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("files", "index.html")
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, strings.NewReader(html)); err != nil {
		return nil, err
	}
	fields := map[string]string{
		"paperWidth":      c.page.PaperWidth,
		"paperHeight":     c.page.PaperHeight,
		"marginTop":       c.page.Margin,
		"marginBottom":    c.page.Margin,
		"marginLeft":      c.page.Margin,
		"marginRight":     c.page.Margin,
		"printBackground": fmt.Sprint(c.page.PrintBackground),
	}
	for _, name := range []string{"paperWidth", "paperHeight", "marginTop", "marginBottom", "marginLeft", "marginRight", "printBackground"} {
		if err := writer.WriteField(name, fields[name]); err != nil {
			return nil, err
		}
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fmt.Sprintf("%s/forms/chromium/convert/html", c.baseURL), body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("render failed with status %d", resp.StatusCode)
	}
	pdf, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(pdf)) > c.maxBytes {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrPDFTooLarge, c.maxBytes)
	}
	return pdf, nil
}
