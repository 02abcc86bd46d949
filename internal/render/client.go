// Package render calls the hosted HTML-to-PDF conversion API.
package render

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// renderRequest is the conversion API payload.
type renderRequest struct {
	HTML    string        `json:"html"`
	CSS     string        `json:"css,omitempty"`
	Options renderOptions `json:"options"`
}

type renderOptions struct {
	Format          string `json:"format"`
	MarginTop       string `json:"marginTop"`
	MarginBottom    string `json:"marginBottom"`
	MarginLeft      string `json:"marginLeft"`
	MarginRight     string `json:"marginRight"`
	PrintBackground bool   `json:"printBackground"`
}

// Client is an HTML-to-PDF renderer backed by a conversion API.
type Client struct {
	httpClient *resty.Client
}

// NewClient creates a renderer client. Rendering a full lease can take a
// while, hence the generous timeout.
func NewClient(baseURL, apiKey string) *Client {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(60 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(2 * time.Second).
		SetRetryMaxWaitTime(10 * time.Second).
		SetHeader("Content-Type", "application/json")

	if apiKey != "" {
		client.SetHeader("Authorization", "Bearer "+apiKey)
	}

	return &Client{httpClient: client}
}

// Render converts contract markup to a PDF. The page setup is fixed for the
// lease documents this service produces: A4, right-to-left content, print
// margins.
func (c *Client) Render(ctx context.Context, html, css string) ([]byte, error) {
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(renderRequest{
			HTML: html,
			CSS:  css,
			Options: renderOptions{
				Format:          "A4",
				MarginTop:       "2.5cm",
				MarginBottom:    "2.5cm",
				MarginLeft:      "1.5cm",
				MarginRight:     "1.5cm",
				PrintBackground: true,
			},
		}).
		Post("/render")
	if err != nil {
		return nil, fmt.Errorf("pdf render request failed: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("pdf render failed with status %d: %s", resp.StatusCode(), resp.String())
	}

	pdf := resp.Body()
	if len(pdf) == 0 {
		return nil, fmt.Errorf("pdf render returned an empty document")
	}
	return pdf, nil
}
