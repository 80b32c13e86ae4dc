package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"
)

var (
	tagPattern    = regexp.MustCompile(`(?s)<(script|style)[^>]*>.*?</(script|style)>`)
	markupPattern = regexp.MustCompile(`<[^>]+>`)
	spacePattern  = regexp.MustCompile(`\s+`)
)

// ScrapeArticle fetches a URL and returns its visible text, markup stripped.
type ScrapeArticle struct {
	client  *http.Client
	maxSize int64
}

// NewScrapeArticle builds the scraper with a 20s timeout and a 2 MB body cap.
func NewScrapeArticle() *ScrapeArticle {
	return &ScrapeArticle{
		client:  &http.Client{Timeout: 20 * time.Second},
		maxSize: 2 << 20,
	}
}

func (s *ScrapeArticle) Name() string     { return "scrape_article" }
func (s *ScrapeArticle) Describe() string { return "Fetch a web page and extract its text content" }

func (s *ScrapeArticle) Execute(ctx context.Context, input map[string]interface{}) Result {
	url, ok := stringParam(input, "url")
	if !ok {
		return Fail("scrape_article requires a url parameter")
	}
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return Fail("url must be http or https")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Fail("build request: %v", err)
	}
	req.Header.Set("User-Agent", "GhostWalletHunter/1.0")

	resp, err := s.client.Do(req)
	if err != nil {
		return Fail("fetch %s: %v", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Fail("fetch %s: status %d", url, resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, s.maxSize))
	if err != nil {
		return Fail("read body: %v", err)
	}

	text := tagPattern.ReplaceAllString(string(raw), " ")
	text = markupPattern.ReplaceAllString(text, " ")
	text = spacePattern.ReplaceAllString(text, " ")
	text = strings.TrimSpace(text)

	return Ok(map[string]interface{}{
		"url":    url,
		"text":   text,
		"length": len(text),
	})
}

// PostToX publishes a post through the X API v2.
type PostToX struct {
	bearerToken string
	baseURL     string
	client      *http.Client
}

// NewPostToX validates the token at construction; an empty baseURL selects
// the production API.
func NewPostToX(bearerToken, baseURL string) (*PostToX, error) {
	if bearerToken == "" {
		return nil, fmt.Errorf("post_to_x requires a bearer token")
	}
	if baseURL == "" {
		baseURL = "https://api.x.com"
	}
	return &PostToX{
		bearerToken: bearerToken,
		baseURL:     baseURL,
		client:      &http.Client{Timeout: 15 * time.Second},
	}, nil
}

func (p *PostToX) Name() string     { return "post_to_x" }
func (p *PostToX) Describe() string { return "Publish a post on X" }

func (p *PostToX) Execute(ctx context.Context, input map[string]interface{}) Result {
	text, ok := stringParam(input, "text")
	if !ok {
		return Fail("post_to_x requires a text parameter")
	}
	if len(text) > 280 {
		return Fail("post text exceeds 280 characters")
	}

	body, _ := json.Marshal(map[string]string{"text": text})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/2/tweets", bytes.NewReader(body))
	if err != nil {
		return Fail("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.bearerToken)

	resp, err := p.client.Do(req)
	if err != nil {
		return Fail("post to x: %v", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return Fail("x api status %d: %s", resp.StatusCode, truncate(string(raw), 200))
	}

	var parsed struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	json.Unmarshal(raw, &parsed)
	return Ok(map[string]interface{}{"post_id": parsed.Data.ID})
}
