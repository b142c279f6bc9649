package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gridstream-io/gridstream/common/models"
)

// AdminClient talks to the coordinator's operator surface.
type AdminClient struct {
	baseURL string
	client  *http.Client
}

func NewAdminClient(baseURL string) *AdminClient {
	return &AdminClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (c *AdminClient) Login(username, password string) (*LoginResponse, error) {
	body := map[string]string{"username": username, "password": password}
	resp, err := c.doRequest("POST", "/v1/admin/login", "", body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, fmt.Errorf("invalid credentials")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, apiError("login", resp)
	}

	var login LoginResponse
	if err := json.NewDecoder(resp.Body).Decode(&login); err != nil {
		return nil, err
	}
	return &login, nil
}

func (c *AdminClient) CreateTenant(token, tenantID, name string) (*models.Tenant, error) {
	body := map[string]string{"tenant_id": tenantID, "name": name}
	resp, err := c.doRequest("POST", "/v1/tenant", token, body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusConflict {
		return nil, fmt.Errorf("tenant %q already exists", tenantID)
	}
	if resp.StatusCode != http.StatusCreated {
		return nil, apiError("create tenant", resp)
	}

	var out struct {
		Tenant *models.Tenant `json:"tenant"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	return out.Tenant, nil
}

func (c *AdminClient) ListTenants(token string) ([]*models.Tenant, error) {
	resp, err := c.doRequest("GET", "/v1/tenant", token, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apiError("list tenants", resp)
	}

	var out struct {
		Tenants []*models.Tenant `json:"tenants"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	return out.Tenants, nil
}

func (c *AdminClient) RotateToken(token, tenantID string) (*models.Token, error) {
	resp, err := c.doRequest("POST", "/v1/tenant/"+tenantID+"/token", token, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("tenant %q not found", tenantID)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, apiError("rotate token", resp)
	}

	var out struct {
		Token *models.Token `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	return out.Token, nil
}

type AddHostRequest struct {
	Hostname  string `json:"hostname"`
	IPv4      string `json:"ip_address_v4,omitempty"`
	IPv6      string `json:"ip_address_v6,omitempty"`
	ProfileID string `json:"profile_id,omitempty"`
}

func (c *AdminClient) AddHost(token, tenantID string, req AddHostRequest) (*models.Host, error) {
	resp, err := c.doRequest("POST", "/v1/tenant/"+tenantID+"/hosts", token, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("tenant %q not found", tenantID)
	}
	if resp.StatusCode != http.StatusCreated {
		return nil, apiError("add host", resp)
	}

	var out struct {
		Host *models.Host `json:"host"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	return out.Host, nil
}

type AddProducerRequest struct {
	Name      string   `json:"name"`
	Pattern   string   `json:"pattern,omitempty"`
	Durable   bool     `json:"durable"`
	Encrypted bool     `json:"encrypted"`
	Sinks     []string `json:"sinks,omitempty"`
}

func (c *AdminClient) AddProducer(token, tenantID string, req AddProducerRequest) (*models.EventProducer, error) {
	resp, err := c.doRequest("POST", "/v1/tenant/"+tenantID+"/producers", token, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("tenant %q not found", tenantID)
	}
	if resp.StatusCode != http.StatusCreated {
		return nil, apiError("add producer", resp)
	}

	var out struct {
		Producer *models.EventProducer `json:"event_producer"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	return out.Producer, nil
}

func (c *AdminClient) ListWorkers(token string) ([]*models.Worker, error) {
	resp, err := c.doRequest("GET", "/v1/worker", token, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apiError("list workers", resp)
	}

	var out struct {
		Workers []*models.Worker `json:"workers"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	return out.Workers, nil
}

func (c *AdminClient) doRequest(method, path, token string, body interface{}) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewBuffer(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	return c.client.Do(req)
}

// IntakeClient pushes events at a worker's HTTP intake.
type IntakeClient struct {
	baseURL string
	client  *http.Client
}

func NewIntakeClient(baseURL string) *IntakeClient {
	return &IntakeClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *IntakeClient) SendEvent(tenantID, tenantToken string, event *models.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	req, err := http.NewRequest("POST", c.baseURL+"/v1/tenant/"+tenantID+"/events", bytes.NewBuffer(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Tenant-Token", tenantToken)

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		return apiError("send event", resp)
	}
	return nil
}

func apiError(op string, resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if len(data) > 0 {
		return fmt.Errorf("%s failed (%d): %s", op, resp.StatusCode, string(bytes.TrimSpace(data)))
	}
	return fmt.Errorf("%s failed with status %d", op, resp.StatusCode)
}
