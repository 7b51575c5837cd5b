package subscribers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultBaseURL is where published Google Sheets are served from.
const DefaultBaseURL = "https://docs.google.com/spreadsheets/d/e"

// ErrFetch is returned when the sheet cannot be downloaded.
var ErrFetch = errors.New("fetch subscriber sheet")

// SheetClient downloads the CSV export of a published sheet.
type SheetClient struct {
	httpClient *http.Client
	baseURL    string
	logger     *slog.Logger
}

func NewSheetClient(httpClient *http.Client, baseURL string, logger *slog.Logger) *SheetClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SheetClient{httpClient: httpClient, baseURL: strings.TrimRight(baseURL, "/"), logger: logger}
}

// CSVURL returns the export URL of the sheet.
func (c *SheetClient) CSVURL(sheetID string) string {
	return fmt.Sprintf("%s/%s/pub?output=csv", c.baseURL, url.PathEscape(sheetID))
}

// Rows downloads and parses the sheet.
func (c *SheetClient) Rows(ctx context.Context, sheetID string) ([]Row, error) {
	if sheetID == "" {
		return nil, fmt.Errorf("%w: missing sheet id", ErrFetch)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.CSVURL(sheetID), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: unexpected status %s", ErrFetch, resp.Status)
	}
	rows, err := ParseCSV(resp.Body, c.logger)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	return rows, nil
}

// Subscribers downloads the sheet and resolves the mailing list.
func (c *SheetClient) Subscribers(ctx context.Context, sheetID string) ([]string, error) {
	rows, err := c.Rows(ctx, sheetID)
	if err != nil {
		return nil, err
	}
	list := Resolve(rows)
	c.logger.Info("subscribers resolved", "rows", len(rows), "subscribers", len(list))
	return list, nil
}
