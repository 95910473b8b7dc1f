// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package azuredevops

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/microsoft/azure-devops-go-api/azuredevops/v7"
)

const continuationHeader = "X-MS-ContinuationToken"

// client calls the REST API of one organization with the authorization of its
// connection.
type client struct {
	organizationURL *url.URL
	authorization   string

	client *http.Client
}

func newClient(connection *azuredevops.Connection, httpClient *http.Client) (*client, error) {
	organizationURL, err := url.Parse(connection.BaseUrl)
	if err != nil {
		return nil, err
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &client{
		organizationURL: organizationURL,
		authorization:   connection.AuthorizationString,
		client:          httpClient,
	}, nil
}

// list returns one page of the collection at path and the continuation token of the
// next one.
func (c *client) list(ctx context.Context, path string, queryParam url.Values) ([]map[string]any, string, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, path, queryParam)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, "", responseError(resp)
	}

	results, err := unmarshalResponse(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("decoding %s: %w", path, err)
	}

	return results, resp.Header.Get(continuationHeader), nil //nolint:canonicalheader
}

func (c *client) doRequest(ctx context.Context, method string, path string, queryParam url.Values) (*http.Response, error) {
	url := c.organizationURL.JoinPath(path)
	url.RawQuery = queryParam.Encode()

	req, err := http.NewRequestWithContext(ctx, method, url.String(), nil)
	if err != nil {
		return nil, err
	}

	if c.authorization != "" {
		req.Header.Set("Authorization", c.authorization)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json;api-version=7.1;charset=utf-8")
	return c.client.Do(req)
}

func unmarshalResponse(body io.Reader) ([]map[string]any, error) {
	type resultsStruct struct {
		Count int              `json:"count"`
		Value []map[string]any `json:"value"`
	}

	results := new(resultsStruct)
	if err := json.NewDecoder(body).Decode(results); err != nil {
		return nil, err
	}

	return results.Value, nil
}

// responseError converts a failed response in the error type of the Azure DevOps SDK,
// keeping the status code for the classification of the run error.
func responseError(resp *http.Response) error {
	statusCode := resp.StatusCode
	wrapped := &azuredevops.WrappedError{StatusCode: &statusCode}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err := json.Unmarshal(body, wrapped); err != nil || wrapped.Message == nil {
		message := http.StatusText(statusCode)
		wrapped.Message = &message
	}
	wrapped.StatusCode = &statusCode
	return wrapped
}
