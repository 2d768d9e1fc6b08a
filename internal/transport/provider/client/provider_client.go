package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const idempotencyKeyHeader = "X-Idempotency-Key"

// Параметры повторов транзиентных ошибок: экспоненциальная пауза с джиттером.
const (
	defaultMaxAttempts    = 4
	defaultBackoffBase    = 500 * time.Millisecond
	defaultBackoffCeiling = 5 * time.Second

	minRetryAfter = 1 * time.Second
	maxRetryAfter = 120 * time.Second
)

type StatusType string

const (
	StatusPending    StatusType = "Pending"
	StatusInProgress StatusType = "In progress"
	StatusProcessing StatusType = "Processing"
	StatusCompleted  StatusType = "Completed"
	StatusPartial    StatusType = "Partial"
	StatusCanceled   StatusType = "Canceled"
)

// Settled сообщает, что провайдер больше не будет менять статус заказа.
func (s StatusType) Settled() bool {
	return s == StatusCompleted || s == StatusPartial || s == StatusCanceled
}

type addResponse struct {
	Order json.Number `json:"order"`
	Error string      `json:"error"`
}

type statusResponse struct {
	Status StatusType `json:"status"`
	Error  string     `json:"error"`
}

// HTTPClient клиент API провайдера накрутки. Протокол form-encoded POST на один
// эндпоинт, операция задается полем action. Все запросы несут ключ
// идемпотентности, повтор после сетевого сбоя не создает дубликат заказа.
type HTTPClient struct {
	baseURL     string
	apiKey      string
	httpClient  *http.Client
	maxAttempts uint
	backoffBase time.Duration
}

func New(baseURL, apiKey string) *HTTPClient {
	return &HTTPClient{
		baseURL:     baseURL,
		apiKey:      apiKey,
		httpClient:  http.DefaultClient,
		maxAttempts: defaultMaxAttempts,
		backoffBase: defaultBackoffBase,
	}
}

// SetMaxAttempts устанавливает лимит попыток на один логический запрос.
func (c *HTTPClient) SetMaxAttempts(attempts uint) *HTTPClient {
	c.maxAttempts = attempts
	return c
}

// SetBackoffBase устанавливает базовую паузу между попытками.
func (c *HTTPClient) SetBackoffBase(base time.Duration) *HTTPClient {
	c.backoffBase = base
	return c
}

// Submit отправляет заказ провайдеру и возвращает его идентификатор на стороне
// провайдера. idemKey прокидывается заголовком во все попытки.
func (c *HTTPClient) Submit(
	ctx context.Context,
	providerServiceID string,
	link string,
	quantity int64,
	idemKey string,
) (string, error) {
	form := url.Values{
		"key":      {c.apiKey},
		"action":   {"add"},
		"service":  {providerServiceID},
		"link":     {link},
		"quantity": {strconv.FormatInt(quantity, 10)},
	}

	var providerOrderID string
	err := c.doWithRetry(ctx, form, idemKey, func(body []byte) error {
		var resp addResponse
		if jsonErr := json.Unmarshal(body, &resp); jsonErr != nil {
			return NewUnparseableError(fmt.Sprintf("parse add response: %s", jsonErr.Error()))
		}
		if resp.Error != "" {
			return NewPermanentError(0, resp.Error)
		}
		if resp.Order.String() == "" {
			return NewUnparseableError("add response without order id")
		}
		providerOrderID = resp.Order.String()
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("submit order: %w", err)
	}
	return providerOrderID, nil
}

// OrderStatus запрашивает текущий статус заказа у провайдера.
func (c *HTTPClient) OrderStatus(ctx context.Context, providerOrderID string) (StatusType, error) {
	form := url.Values{
		"key":    {c.apiKey},
		"action": {"status"},
		"order":  {providerOrderID},
	}

	var status StatusType
	err := c.doWithRetry(ctx, form, providerOrderID, func(body []byte) error {
		var resp statusResponse
		if jsonErr := json.Unmarshal(body, &resp); jsonErr != nil {
			return NewUnparseableError(fmt.Sprintf("parse status response: %s", jsonErr.Error()))
		}
		if resp.Error != "" {
			return NewPermanentError(0, resp.Error)
		}
		if resp.Status == "" {
			return NewUnparseableError("status response without status")
		}
		status = resp.Status
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("order status: %w", err)
	}
	return status, nil
}

// doWithRetry выполняет запрос с повторами. Повторяется все, кроме перманентных
// отказов; пауза растет экспоненциально от backoffBase с джиттером до половины
// значения, заголовок Retry-After при 429 имеет приоритет.
func (c *HTTPClient) doWithRetry(
	ctx context.Context,
	form url.Values,
	idemKey string,
	parse func(body []byte) error,
) error {
	var lastErr error
	for attempt := uint(0); attempt < c.maxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return fmt.Errorf("waiting retry: %w", ctx.Err())
			case <-time.After(c.backoffFor(attempt, lastErr)):
			}
		}

		body, doErr := c.do(ctx, form, idemKey)
		if doErr == nil {
			doErr = parse(body)
		}
		if doErr == nil {
			return nil
		}

		lastErr = doErr
		if !IsRetriable(doErr) {
			return doErr
		}
		if ctx.Err() != nil {
			return lastErr
		}
	}
	return fmt.Errorf("attempts exhausted: %w", lastErr)
}

// do выполняет одну попытку запроса и классифицирует HTTP-уровень ошибок.
//
//nolint:nonamedreturns
func (c *HTTPClient) do(ctx context.Context, form url.Values, idemKey string) (body []byte, err error) {
	req, reqErr := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, strings.NewReader(form.Encode()))
	if reqErr != nil {
		return nil, fmt.Errorf("create request: %s", reqErr.Error())
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set(idempotencyKeyHeader, idemKey)

	resp, doErr := c.httpClient.Do(req)
	if doErr != nil {
		return nil, NewTransientError(0, doErr.Error())
	}

	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			err = errors.Join(err, closeErr)
		}
	}()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		apiErr := NewTransientError(resp.StatusCode, "rate limited")
		apiErr.RetryAfter = parseRetryAfter(resp.Header.Get("Retry-After"))
		return nil, apiErr
	case resp.StatusCode >= http.StatusInternalServerError:
		return nil, NewTransientError(resp.StatusCode, "provider unavailable")
	case resp.StatusCode >= http.StatusBadRequest:
		return nil, NewPermanentError(resp.StatusCode, "request rejected")
	}

	body, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		return nil, NewTransientError(resp.StatusCode, fmt.Sprintf("read response: %s", readErr.Error()))
	}
	return body, nil
}

func (c *HTTPClient) backoffFor(attempt uint, lastErr error) time.Duration {
	var apiErr *APIError
	if errors.As(lastErr, &apiErr) && apiErr.RetryAfter > 0 {
		return apiErr.RetryAfter
	}

	backoff := c.backoffBase << (attempt - 1)
	if backoff > defaultBackoffCeiling {
		backoff = defaultBackoffCeiling
	}
	// Джиттер разводит по времени клиентов, отбитых одной и той же аварией.
	return backoff + time.Duration(rand.Int63n(int64(backoff/2+1))) //nolint:gosec
}

func parseRetryAfter(header string) time.Duration {
	seconds, parseErr := strconv.Atoi(header)
	if parseErr != nil {
		return 60 * time.Second //nolint:mnd
	}
	ra := time.Duration(seconds) * time.Second
	if ra < minRetryAfter || ra > maxRetryAfter {
		return 60 * time.Second //nolint:mnd
	}
	return ra
}
