// Package coordclient is the worker-side client for the coordinator
// control plane. Every call is wrapped in the shared retry policy;
// exhausted retries surface as CoordinatorCommunicationError so callers
// can tell transient coordinator trouble from terminal auth failures.
package coordclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gridstream-io/gridstream/common/griderr"
	"github.com/gridstream-io/gridstream/common/models"
	"github.com/gridstream-io/gridstream/common/retry"
)

// Credentials are the shared-secret pair issued at pairing time.
type Credentials struct {
	WorkerID    string
	WorkerToken string
}

type Client struct {
	baseURL string
	creds   Credentials
	client  *http.Client
	policy  retry.Policy
}

// New creates a coordinator client. timeout bounds each individual HTTP
// call; policy governs retries around it.
func New(baseURL string, creds Credentials, timeout time.Duration, policy retry.Policy) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		creds:   creds,
		client:  &http.Client{Timeout: timeout},
		policy:  policy,
	}
}

// SetCredentials installs the pair issued by Register.
func (c *Client) SetCredentials(creds Credentials) {
	c.creds = creds
}

// Register pairs this worker with the coordinator and returns the issued
// credentials. Registration is the one call made without credentials.
func (c *Client) Register(ctx context.Context, hostname, callback, ipv4 string, personality models.Personality) (Credentials, error) {
	body, err := json.Marshal(map[string]interface{}{
		"hostname":      hostname,
		"callback":      callback,
		"ip_address_v4": ipv4,
		"personality":   personality,
	})
	if err != nil {
		return Credentials{}, err
	}

	var creds Credentials
	err = c.policy.Do(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/pairing", bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusCreated {
			return fmt.Errorf("pairing returned %d", resp.StatusCode)
		}

		var out struct {
			WorkerID    string `json:"worker_id"`
			WorkerToken string `json:"worker_token"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return err
		}
		creds = Credentials{WorkerID: out.WorkerID, WorkerToken: out.WorkerToken}
		return nil
	})
	if err != nil {
		return Credentials{}, griderr.Communication("pairing", err)
	}
	return creds, nil
}

// ProbeToken performs the cheap HEAD validation of a tenant token.
// Returns nil on a match, MessageAuthenticationError on a mismatch and
// ResourceNotFoundError for an unknown tenant.
func (c *Client) ProbeToken(ctx context.Context, tenantID, token string) error {
	var status int
	err := c.policy.Do(ctx, func() error {
		req, err := c.newRequest(ctx, http.MethodHead, "/v1/tenant/"+tenantID+"/token", nil)
		if err != nil {
			return err
		}
		req.Header.Set("X-Tenant-Token", token)

		resp, err := c.client.Do(req)
		if err != nil {
			return err
		}
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		if resp.StatusCode >= 500 {
			return fmt.Errorf("token probe returned %d", resp.StatusCode)
		}
		status = resp.StatusCode
		return nil
	})
	if err != nil {
		return griderr.Communication("token probe", err)
	}

	switch status {
	case http.StatusOK:
		return nil
	case http.StatusNotFound:
		return griderr.NotFound("tenant", tenantID)
	default:
		return griderr.Authentication(tenantID)
	}
}

// FetchTenant retrieves the full tenant graph.
func (c *Client) FetchTenant(ctx context.Context, tenantID string) (*models.Tenant, error) {
	var tenant *models.Tenant
	err := c.policy.Do(ctx, func() error {
		req, err := c.newRequest(ctx, http.MethodGet, "/v1/tenant/"+tenantID, nil)
		if err != nil {
			return err
		}

		resp, err := c.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusNotFound:
			tenant = nil
			return nil
		case resp.StatusCode != http.StatusOK:
			return fmt.Errorf("tenant fetch returned %d", resp.StatusCode)
		}

		var out struct {
			Tenant *models.Tenant `json:"tenant"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return err
		}
		tenant = out.Tenant
		return nil
	})
	if err != nil {
		return nil, griderr.Communication("tenant fetch", err)
	}
	if tenant == nil {
		return nil, griderr.NotFound("tenant", tenantID)
	}
	return tenant, nil
}

// ReportUnreachable files a failure report against a downstream worker.
// Best effort: a single attempt, errors returned but safe to ignore.
func (c *Client) ReportUnreachable(ctx context.Context, workerID string) error {
	req, err := c.newRequest(ctx, http.MethodPut, "/v1/worker/"+workerID, nil)
	if err != nil {
		return griderr.Communication("failure report", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return griderr.Communication("failure report", err)
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return griderr.Communication("failure report", fmt.Errorf("returned %d", resp.StatusCode))
	}
	return nil
}

// UpdateStatus publishes a status transition with a system-info snapshot.
func (c *Client) UpdateStatus(ctx context.Context, status models.WorkerStatus, info *models.SystemInfo) error {
	body, err := json.Marshal(map[string]interface{}{
		"status":      status,
		"system_info": info,
	})
	if err != nil {
		return err
	}

	err = c.policy.Do(ctx, func() error {
		req, err := c.newRequest(ctx, http.MethodPut, "/v1/worker/"+c.creds.WorkerID+"/status", bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			return err
		}
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("status update returned %d", resp.StatusCode)
		}
		return nil
	})
	if err != nil {
		return griderr.Communication("status update", err)
	}
	return nil
}

// FetchRoutes retrieves this worker's derived routing table.
func (c *Client) FetchRoutes(ctx context.Context) (*models.RoutingTable, error) {
	var table *models.RoutingTable
	err := c.policy.Do(ctx, func() error {
		req, err := c.newRequest(ctx, http.MethodGet, "/v1/worker/"+c.creds.WorkerID+"/routes", nil)
		if err != nil {
			return err
		}

		resp, err := c.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("routes fetch returned %d", resp.StatusCode)
		}

		var out models.RoutingTable
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return err
		}
		table = &out
		return nil
	})
	if err != nil {
		return nil, griderr.Communication("routes fetch", err)
	}
	return table, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-Worker-ID", c.creds.WorkerID)
	req.Header.Set("X-Worker-Token", c.creds.WorkerToken)
	return req, nil
}
