package asaas

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/fipehub/billing-processor/models"
	"github.com/fipehub/billing-processor/utils"
)

// ErrProviderUnavailable marks transport failures and provider 5xx answers.
// Callers must treat it as "unknown", never as an empty payment list.
var ErrProviderUnavailable = errors.New("payment provider unavailable")

type Config struct {
	BaseURL string
	APIKey  string
}

type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

type Customer struct {
	ID                string `json:"id,omitempty"`
	Name              string `json:"name"`
	Email             string `json:"email,omitempty"`
	CpfCnpj           string `json:"cpfCnpj"`
	ExternalReference string `json:"externalReference,omitempty"`
}

type apiError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

type apiErrorResponse struct {
	Errors []apiError `json:"errors"`
}

// failedClientResult retypes a transport failure, keeping its retryable and
// capturable flags. A 4xx marked non-retryable must stay non-retryable.
func failedClientResult[T any](r utils.Result[bool]) utils.Result[T] {
	result := utils.FailedResult[T](r.Error()).AddErrorDetails(r.ErrorCode(), r.ErrorMessage())
	result.Retryable = r.IsRetryable()
	result.Capture = r.IsCapturable()
	return result
}

func NewClient(cfg Config) *Client {
	logger := slog.Default()
	logger = logger.With("component", "asaas")

	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// ListPayments returns every payment record the provider holds for the
// customer. The response arrives either as a pagination envelope or a raw
// array; both are handled.
func (c *Client) ListPayments(ctx context.Context, customerID string) utils.Result[[]models.PaymentRecord] {
	endpoint := fmt.Sprintf("/payments?customer=%s", url.QueryEscape(customerID))

	body, result := c.get(ctx, endpoint)
	if result.Failure() {
		return failedClientResult[[]models.PaymentRecord](result)
	}

	return models.UnmarshalPaymentList(body)
}

// FindCustomerByDocument searches the provider by CPF/CNPJ. A missing
// customer is a successful nil result, not an error.
func (c *Client) FindCustomerByDocument(ctx context.Context, cpfCnpj string) utils.Result[*Customer] {
	endpoint := fmt.Sprintf("/customers?cpfCnpj=%s", url.QueryEscape(cpfCnpj))

	body, result := c.get(ctx, endpoint)
	if result.Failure() {
		return failedClientResult[*Customer](result)
	}

	var envelope struct {
		Data []Customer `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return utils.FailedResult[*Customer](err).NonRetryable()
	}

	if len(envelope.Data) == 0 {
		return utils.SuccessResult[*Customer](nil)
	}

	return utils.SuccessResult(&envelope.Data[0])
}

func (c *Client) CreateCustomer(ctx context.Context, customer Customer) utils.Result[*Customer] {
	payload, err := json.Marshal(customer)
	if err != nil {
		return utils.FailedResult[*Customer](err).NonRetryable()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/customers", bytes.NewReader(payload))
	if err != nil {
		return utils.FailedResult[*Customer](err).NonRetryable()
	}
	req.Header.Set("Content-Type", "application/json")

	body, result := c.do(req)
	if result.Failure() {
		return failedClientResult[*Customer](result)
	}

	var created Customer
	if err := json.Unmarshal(body, &created); err != nil {
		return utils.FailedResult[*Customer](err).NonRetryable()
	}

	return utils.SuccessResult(&created)
}

// UpsertCustomer is the idempotent search-or-create flow: an existing
// customer with the same document is reused, never duplicated.
func (c *Client) UpsertCustomer(ctx context.Context, customer Customer) utils.Result[*Customer] {
	foundResult := c.FindCustomerByDocument(ctx, customer.CpfCnpj)
	if foundResult.Failure() {
		return foundResult
	}

	if found := foundResult.Value(); found != nil {
		return utils.SuccessResult(found)
	}

	return c.CreateCustomer(ctx, customer)
}

func (c *Client) get(ctx context.Context, endpoint string) ([]byte, utils.Result[bool]) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint, nil)
	if err != nil {
		return nil, utils.FailedBoolResult(err).NonRetryable()
	}

	return c.do(req)
}

func (c *Client) do(req *http.Request) ([]byte, utils.Result[bool]) {
	req.Header.Set("access_token", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, utils.FailedBoolResult(fmt.Errorf("%w: %v", ErrProviderUnavailable, err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, utils.FailedBoolResult(fmt.Errorf("%w: %v", ErrProviderUnavailable, err))
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, utils.FailedBoolResult(
			fmt.Errorf("%w: status %d", ErrProviderUnavailable, resp.StatusCode),
		)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		result := utils.FailedBoolResult(
			fmt.Errorf("provider rejected request with status %d", resp.StatusCode),
		).NonRetryable()

		var errResponse apiErrorResponse
		if err := json.Unmarshal(body, &errResponse); err == nil && len(errResponse.Errors) > 0 {
			result = result.AddErrorDetails(errResponse.Errors[0].Code, errResponse.Errors[0].Description)
		}

		return nil, result
	}

	return body, utils.SuccessResult(true)
}
