package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/psantana5/execreaper/pkg/logging"
	"github.com/psantana5/execreaper/pkg/models"
	"github.com/psantana5/execreaper/pkg/retry"
	"github.com/psantana5/execreaper/pkg/tlsutil"
	"github.com/psantana5/execreaper/pkg/tracing"
)

// HTTPConfig configures the admin API client
type HTTPConfig struct {
	URL     string         `mapstructure:"url" yaml:"url"`
	APIKey  string         `mapstructure:"api_key" yaml:"api_key"`
	Timeout time.Duration  `mapstructure:"timeout" yaml:"timeout"`
	TLS     tlsutil.Config `mapstructure:"tls" yaml:"tls"`
	Retry   retry.Config   `mapstructure:"retry" yaml:"retry"`
}

// HTTPClient talks to the execution backend's JSON admin API
type HTTPClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	retry      retry.Config
	logger     *logging.Logger
}

// NewHTTPClient creates an admin API client
func NewHTTPClient(cfg HTTPConfig, logger *logging.Logger) (*HTTPClient, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("backend URL is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.TLS.Enabled() {
		tlsConfig, err := tlsutil.LoadClientTLSConfig(cfg.TLS)
		if err != nil {
			return nil, err
		}
		transport.TLSClientConfig = tlsConfig
	}

	retryCfg := cfg.Retry
	retryCfg.ShouldRetry = shouldRetry

	return &HTTPClient{
		baseURL: strings.TrimRight(cfg.URL, "/"),
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: transport,
		},
		retry:  retryCfg,
		logger: logger.WithField("component", "backend"),
	}, nil
}

type projectList struct {
	Projects []struct {
		ID      string `json:"id"`
		Domains []struct {
			ID string `json:"id"`
		} `json:"domains"`
	} `json:"projects"`
}

type executionList struct {
	Executions []executionJSON `json:"executions"`
	Token      string          `json:"token"`
}

type executionJSON struct {
	ID struct {
		Project string `json:"project"`
		Domain  string `json:"domain"`
		Name    string `json:"name"`
	} `json:"id"`
	Spec struct {
		Annotations struct {
			Values map[string]string `json:"values"`
		} `json:"annotations"`
	} `json:"spec"`
	Closure struct {
		Phase     string    `json:"phase"`
		CreatedAt time.Time `json:"created_at"`
	} `json:"closure"`
}

func (e executionJSON) snapshot() models.ExecutionSnapshot {
	return models.ExecutionSnapshot{
		Scope:       models.Scope{Project: e.ID.Project, Domain: e.ID.Domain},
		Name:        e.ID.Name,
		Phase:       models.ParsePhase(e.Closure.Phase),
		Annotations: models.Annotations(e.Spec.Annotations.Values),
		CreatedAt:   e.Closure.CreatedAt,
	}
}

// ListScopes lists every project/domain pair
func (c *HTTPClient) ListScopes(ctx context.Context) ([]models.Scope, error) {
	var projects projectList
	err := retry.Do(ctx, c.retry, func() error {
		return c.getJSON(ctx, "list projects", c.baseURL+"/api/v1/projects", &projects)
	})
	if err != nil {
		return nil, err
	}

	var scopes []models.Scope
	for _, p := range projects.Projects {
		for _, d := range p.Domains {
			scopes = append(scopes, models.Scope{Project: p.ID, Domain: d.ID})
		}
	}
	return scopes, nil
}

// ListExecutions fetches one page of executions in a scope
func (c *HTTPClient) ListExecutions(ctx context.Context, req ListRequest) (*ExecutionPage, error) {
	query := url.Values{}
	if req.PageSize > 0 {
		query.Set("limit", strconv.Itoa(req.PageSize))
	}
	if req.PageToken != "" {
		query.Set("token", req.PageToken)
	}
	if len(req.PhaseFilter) > 0 {
		phases := make([]string, len(req.PhaseFilter))
		for i, p := range req.PhaseFilter {
			phases[i] = strings.ToUpper(string(p))
		}
		query.Set("filters", fmt.Sprintf("value_in(phase,%s)", strings.Join(phases, ";")))
	}

	endpoint := fmt.Sprintf("%s/api/v1/executions/%s/%s?%s", c.baseURL,
		url.PathEscape(req.Project), url.PathEscape(req.Domain), query.Encode())

	var list executionList
	err := retry.Do(ctx, c.retry, func() error {
		list = executionList{}
		return c.getJSON(ctx, "list executions", endpoint, &list)
	})
	if err != nil {
		return nil, err
	}

	page := &ExecutionPage{
		Executions:    make([]models.ExecutionSnapshot, 0, len(list.Executions)),
		NextPageToken: list.Token,
	}
	for _, e := range list.Executions {
		page.Executions = append(page.Executions, e.snapshot())
	}
	return page, nil
}

// TerminateExecution aborts an execution. An execution the backend no longer
// knows about counts as terminated. Failures are not retried here; the next
// reconciliation pass retries them.
func (c *HTTPClient) TerminateExecution(ctx context.Context, project, domain, name, cause string) error {
	body, err := json.Marshal(map[string]string{"cause": cause})
	if err != nil {
		return fmt.Errorf("failed to marshal terminate request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/api/v1/executions/%s/%s/%s", c.baseURL,
		url.PathEscape(project), url.PathEscape(domain), url.PathEscape(name))
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.do(req)
	if err != nil {
		return fmt.Errorf("failed to terminate execution %s/%s/%s: %w", project, domain, name, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		c.logger.Debug("Execution already gone", map[string]interface{}{
			"execution": project + "/" + domain + "/" + name,
		})
		return nil
	case resp.StatusCode >= 300:
		return statusError("terminate execution", resp)
	}
	return nil
}

func (c *HTTPClient) getJSON(ctx context.Context, op, endpoint string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return statusError(op, resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: failed to decode response: %w", op, err)
	}
	return nil
}

func (c *HTTPClient) do(req *http.Request) (*http.Response, error) {
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	tracing.InjectHTTPHeaders(req.Context(), req)
	return c.httpClient.Do(req)
}

// shouldRetry retries server errors, throttling and network failures. Other
// status errors are final whatever their body says.
func shouldRetry(err error) bool {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode >= http.StatusInternalServerError ||
			statusErr.StatusCode == http.StatusTooManyRequests
	}
	return retry.IsRetryable(err)
}

func statusError(op string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return &StatusError{Op: op, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
}
