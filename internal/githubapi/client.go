// Package githubapi is a thin GitHub contents-API client used to browse a
// repository's skills without cloning it.
package githubapi

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const defaultBaseURL = "https://api.github.com"

// Content is one item returned by the contents API.
type Content struct {
	Type        string `json:"type"`
	Name        string `json:"name"`
	Path        string `json:"path"`
	SHA         string `json:"sha"`
	Size        int    `json:"size"`
	DownloadURL string `json:"download_url"`
}

// Client wraps the GitHub REST API.
type Client struct {
	restyClient *resty.Client
	baseURL     string
}

// NewClient creates a Client. token may be empty for public repositories.
func NewClient(token string) *Client {
	client := resty.New()
	client.SetTimeout(30 * time.Second)
	client.SetRetryCount(3)
	client.SetRetryWaitTime(2 * time.Second)
	client.SetHeader("User-Agent", "skilldeck-cli/1.0")
	if token != "" {
		client.SetHeader("Authorization", fmt.Sprintf("Bearer %s", token))
	}

	return &Client{
		restyClient: client,
		baseURL:     defaultBaseURL,
	}
}

// SetBaseURL overrides the API base URL. Intended for tests.
func (c *Client) SetBaseURL(url string) {
	c.baseURL = strings.TrimSuffix(url, "/")
}

// Contents fetches the directory listing at path within owner/repo.
func (c *Client) Contents(ctx context.Context, owner, repo, path string) ([]Content, error) {
	url := fmt.Sprintf("%s/repos/%s/%s/contents/%s", c.baseURL, owner, repo, path)

	var contents []Content
	resp, err := c.restyClient.R().
		SetContext(ctx).
		SetResult(&contents).
		Get(url)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}

	if resp.StatusCode() == http.StatusForbidden && strings.Contains(resp.String(), "rate limit exceeded") {
		return nil, fmt.Errorf("API rate limit exceeded; configure github_token in the skilldeck config")
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("API returned %d: %s", resp.StatusCode(), resp.String())
	}

	return contents, nil
}

// ListSkills returns the names of directories in owner/repo that contain a
// SKILL.md, looking first under skills/ and falling back to the repo root.
func (c *Client) ListSkills(ctx context.Context, owner, repo string) ([]string, error) {
	roots := []string{"skills", ""}

	var lastErr error
	for _, root := range roots {
		contents, err := c.Contents(ctx, owner, repo, root)
		if err != nil {
			lastErr = err
			continue
		}

		var found []string
		for _, item := range contents {
			if item.Type != "dir" {
				continue
			}
			children, err := c.Contents(ctx, owner, repo, item.Path)
			if err != nil {
				lastErr = err
				continue
			}
			for _, child := range children {
				if child.Type == "file" && child.Name == "SKILL.md" {
					found = append(found, item.Name)
					break
				}
			}
		}
		if len(found) > 0 {
			return found, nil
		}
	}

	// An empty result with a swallowed API failure would misreport a rate
	// limit or a missing repository as an empty one.
	if lastErr != nil {
		return nil, lastErr
	}
	return nil, fmt.Errorf("no skills found in %s/%s", owner, repo)
}
