// Package directory lists group memberships through the Admin SDK
// Directory API. Calls authenticate with an impersonating service
// credential, never with an end user's own token.
package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// DefaultBaseURL is the Admin SDK Directory endpoint.
const DefaultBaseURL = "https://admin.googleapis.com/admin/directory/v1"

// TokenSource yields a valid bearer token for directory calls.
// *googleidp.ServiceAccount satisfies this.
type TokenSource interface {
	Token() (string, error)
}

type ListGroupsRequest struct {
	// Domain restricts the listing to one workspace domain. Required.
	Domain string
	// UserKey limits the listing to groups the given user (usually an
	// email address) belongs to.
	UserKey string
	// PageToken is the cursor from the previous page, empty on the
	// first call.
	PageToken string
}

type Group struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type GroupsPage struct {
	Groups        []Group `json:"groups"`
	NextPageToken string  `json:"nextPageToken"`
}

// Client is the capability groups resolution programs against.
type Client interface {
	ListGroups(ctx context.Context, req *ListGroupsRequest) (*GroupsPage, error)
}

type apiError struct {
	Err struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// HTTPClient is the REST implementation of Client.
type HTTPClient struct {
	baseURL    string
	tokens     TokenSource
	httpClient *http.Client
}

type HTTPClientOption func(c *HTTPClient)

// WithBaseURL overrides the API endpoint. Used in tests.
func WithBaseURL(baseURL string) HTTPClientOption {
	return func(c *HTTPClient) {
		c.baseURL = baseURL
	}
}

func NewHTTPClient(tokens TokenSource, opts ...HTTPClientOption) *HTTPClient {
	c := &HTTPClient{
		baseURL:    DefaultBaseURL,
		tokens:     tokens,
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ListGroups fetches a single page of the group listing. The caller
// drives pagination with the returned NextPageToken.
func (c *HTTPClient) ListGroups(ctx context.Context, req *ListGroupsRequest) (*GroupsPage, error) {
	if req.Domain == "" {
		return nil, fmt.Errorf("domain is required")
	}

	token, err := c.tokens.Token()
	if err != nil {
		return nil, fmt.Errorf("unable to get service token: %w", err)
	}

	query := url.Values{}
	query.Set("domain", req.Domain)
	if req.UserKey != "" {
		query.Set("userKey", req.UserKey)
	}
	if req.PageToken != "" {
		query.Set("pageToken", req.PageToken)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/groups?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("unable to build request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("unable to list groups: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("unable to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr apiError
		if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Err.Message != "" {
			return nil, fmt.Errorf("directory API error %d: %s", apiErr.Err.Code, apiErr.Err.Message)
		}
		return nil, fmt.Errorf("directory API returned status %d", resp.StatusCode)
	}

	var page GroupsPage
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, fmt.Errorf("unable to decode groups page: %w", err)
	}

	return &page, nil
}
