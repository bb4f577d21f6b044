// SPDX-FileCopyrightText: Rancher DevOps Operator contributors
//
// SPDX-License-Identifier: Apache-2.0

package platform

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Jasonrve/rancher-devops-operator/internal/auth"
)

// HTTPClient is the default Client implementation, talking to the
// platform's REST surface. Its wire protocol is explicitly out of scope
// for this repository (spec §1, §6.2); this implementation exists only so
// the operator has something real to wire into cmd/rancher-devops-operator,
// and intentionally does not attempt to model the full platform API.
type HTTPClient struct {
	baseURL string
	tokens  *auth.Cache
	http    *http.Client
}

// NewHTTPClient builds an HTTPClient. allowInsecureSSL disables TLS
// certificate verification, mirroring Rancher.AllowInsecureSsl (spec §6.4).
func NewHTTPClient(baseURL string, tokens *auth.Cache, allowInsecureSSL bool) *HTTPClient {
	transport := &http.Transport{}
	if allowInsecureSSL {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec
	}
	return &HTTPClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		tokens:  tokens,
		http:    &http.Client{Transport: transport, Timeout: 30 * time.Second},
	}
}

// NewPasswordRefresher builds an auth.Refresher that exchanges (username,
// password) for a token via the platform's local-provider login action.
// The returned token is treated as valid for 12 hours (spec §6.3's lower
// bound on token lifetime), since the login response does not carry an
// explicit expiry in the platform's API.
func NewPasswordRefresher(baseURL, username, password string, allowInsecureSSL bool) auth.Refresher {
	transport := &http.Transport{}
	if allowInsecureSSL {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec
	}
	httpClient := &http.Client{Transport: transport, Timeout: 30 * time.Second}
	base := strings.TrimSuffix(baseURL, "/")

	return func(ctx context.Context) (string, time.Time, error) {
		body, err := json.Marshal(map[string]string{
			"username": username,
			"password": password,
		})
		if err != nil {
			return "", time.Time{}, fmt.Errorf("marshal login request: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+"/v3-public/localProviders/local?action=login", bytes.NewReader(body))
		if err != nil {
			return "", time.Time{}, fmt.Errorf("build login request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := httpClient.Do(req)
		if err != nil {
			return "", time.Time{}, fmt.Errorf("login request: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 300 {
			b, _ := io.ReadAll(resp.Body)
			return "", time.Time{}, fmt.Errorf("login failed: %s: %s", resp.Status, string(b))
		}

		var out struct {
			Token string `json:"token"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return "", time.Time{}, fmt.Errorf("decode login response: %w", err)
		}
		return out.Token, time.Now().Add(12 * time.Hour), nil
	}
}

func (c *HTTPClient) do(ctx context.Context, method, path string, query url.Values, body, out interface{}) (int, error) {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("marshal request body: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return 0, fmt.Errorf("acquire platform token: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("platform request %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return resp.StatusCode, nil
	}
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return resp.StatusCode, fmt.Errorf("platform request %s %s failed: %s: %s", method, path, resp.Status, string(b))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil && err != io.EOF {
			return resp.StatusCode, fmt.Errorf("decode response: %w", err)
		}
	}
	return resp.StatusCode, nil
}

func (c *HTTPClient) GetClusterIDByName(ctx context.Context, name string) (string, error) {
	var out struct {
		ID string `json:"id"`
	}
	status, err := c.do(ctx, http.MethodGet, "/v3/clusters", url.Values{"name": {name}}, nil, &out)
	if err != nil {
		return "", err
	}
	if status == http.StatusNotFound {
		return "", nil
	}
	return out.ID, nil
}

func (c *HTTPClient) GetProjectByName(ctx context.Context, clusterID, name string) (*Project, error) {
	var out Project
	status, err := c.do(ctx, http.MethodGet, "/v3/projects", url.Values{"clusterId": {clusterID}, "name": {name}}, nil, &out)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound || out.ID == "" {
		return nil, nil
	}
	return &out, nil
}

func (c *HTTPClient) CreateProject(ctx context.Context, clusterID, name, description string, annotations map[string]string) (*Project, error) {
	merged := map[string]string{ManagedByKey: ManagedByValue}
	for k, v := range annotations {
		merged[k] = v
	}
	body := map[string]interface{}{
		"clusterId":   clusterID,
		"name":        name,
		"description": description,
		"annotations": merged,
	}
	var out Project
	if _, err := c.do(ctx, http.MethodPost, "/v3/projects", nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) DeleteProject(ctx context.Context, projectID string) (bool, error) {
	var p Project
	status, err := c.do(ctx, http.MethodGet, "/v3/projects/"+projectID, nil, nil, &p)
	if err != nil {
		return false, err
	}
	if status == http.StatusNotFound || !p.IsManagedByUs() {
		return false, nil
	}
	status, err = c.do(ctx, http.MethodDelete, "/v3/projects/"+projectID, nil, nil, nil)
	if err != nil {
		return false, err
	}
	return status < 300, nil
}

func (c *HTTPClient) GetNamespace(ctx context.Context, clusterID, name string) (*Namespace, error) {
	var out Namespace
	status, err := c.do(ctx, http.MethodGet, "/v1/namespaces/"+name, url.Values{"clusterId": {clusterID}}, nil, &out)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, nil
	}
	return &out, nil
}

func (c *HTTPClient) CreateNamespace(ctx context.Context, projectID, name string) (*Namespace, error) {
	name = strings.ToLower(name)
	body := map[string]interface{}{
		"name":      name,
		"projectId": projectID,
		"labels":    map[string]string{ManagedByKey: ManagedByValue},
		"annotations": map[string]string{
			ManagedByKey: ManagedByValue,
		},
	}
	var out Namespace
	if _, err := c.do(ctx, http.MethodPost, "/v1/namespaces", nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) UpdateNamespaceProject(ctx context.Context, clusterID, name, newProjectID string) error {
	ns, err := c.GetNamespace(ctx, clusterID, strings.ToLower(name))
	if err != nil {
		return err
	}
	labels := map[string]string{}
	if ns != nil {
		for k, v := range ns.Labels {
			labels[k] = v
		}
	}
	if _, ok := labels[ManagedByKey]; !ok {
		labels[ManagedByKey] = ManagedByValue
	}
	body := map[string]interface{}{"clusterId": clusterID, "projectId": newProjectID, "labels": labels}
	_, err = c.do(ctx, http.MethodPut, "/v1/namespaces/"+strings.ToLower(name), nil, body, nil)
	return err
}

func (c *HTTPClient) RemoveNamespaceFromProject(ctx context.Context, clusterID, name string) (bool, error) {
	ns, err := c.GetNamespace(ctx, clusterID, strings.ToLower(name))
	if err != nil {
		return false, err
	}
	if !ns.IsManagedByUs() {
		return false, nil
	}
	body := map[string]interface{}{"clusterId": clusterID, "projectId": ""}
	status, err := c.do(ctx, http.MethodPut, "/v1/namespaces/"+strings.ToLower(name), nil, body, nil)
	if err != nil {
		return false, err
	}
	return status < 300, nil
}

func (c *HTTPClient) DeleteNamespace(ctx context.Context, clusterID, name string) (bool, error) {
	ns, err := c.GetNamespace(ctx, clusterID, strings.ToLower(name))
	if err != nil {
		return false, err
	}
	if !ns.IsManagedByUs() {
		return false, nil
	}
	status, err := c.do(ctx, http.MethodDelete, "/v1/namespaces/"+strings.ToLower(name), url.Values{"clusterId": {clusterID}}, nil, nil)
	if err != nil {
		return false, err
	}
	return status < 300, nil
}

func (c *HTTPClient) GetProjectNamespaces(ctx context.Context, projectID string) ([]Namespace, error) {
	var out struct {
		Data []Namespace `json:"data"`
	}
	if _, err := c.do(ctx, http.MethodGet, "/v1/namespaces", url.Values{"projectId": {projectID}}, nil, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

func (c *HTTPClient) GetProjectMembers(ctx context.Context, projectID string) ([]Member, error) {
	var out struct {
		Data []Member `json:"data"`
	}
	if _, err := c.do(ctx, http.MethodGet, "/v3/projectRoleTemplateBindings", url.Values{"projectId": {projectID}}, nil, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

func (c *HTTPClient) CreateProjectMember(ctx context.Context, projectID, principalID string, role string) (*Member, error) {
	m := Member{ProjectID: projectID, RoleTemplateID: role}
	if strings.Contains(principalID, "user") {
		m.UserPrincipalID = principalID
	} else {
		m.GroupPrincipalID = principalID
	}
	var out Member
	if _, err := c.do(ctx, http.MethodPost, "/v3/projectRoleTemplateBindings", nil, m, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) GetPrincipalIDByName(ctx context.Context, name string) (string, error) {
	var out struct {
		Data []struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if _, err := c.do(ctx, http.MethodGet, "/v3/principals", url.Values{"name": {name}, "search": {"true"}}, nil, &out); err != nil {
		return "", err
	}
	if len(out.Data) == 0 {
		return "", nil
	}
	return out.Data[0].ID, nil
}

func (c *HTTPClient) GetClusterKubeconfig(ctx context.Context, clusterID string) (string, error) {
	var out struct {
		Config string `json:"config"`
	}
	status, err := c.do(ctx, http.MethodPost, "/v3/clusters/"+clusterID+"?action=generateKubeconfig", nil, nil, &out)
	if err != nil {
		return "", err
	}
	if status == http.StatusNotFound {
		return "", nil
	}
	return out.Config, nil
}

var _ Client = (*HTTPClient)(nil)
