// Package pricing предоставляет клиент для внешней системы ценообразования.
package pricing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// ErrProductNotFound возвращается, если система ценообразования не знает товар.
var ErrProductNotFound = errors.New("product not found in pricing system")

// Client инкапсулирует HTTP-взаимодействие с системой ценообразования.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// ProductCost описывает ответ системы ценообразования по одному товару.
type ProductCost struct {
	ProductID int64 `json:"product_id"`
	UnitCost  int64 `json:"unit_cost"`
}

// NewClient создаёт HTTP-клиент для обращения к системе ценообразования по указанному адресу.
// Временные сбои сети и ответы 5xx повторяются на уровне транспорта.
func NewClient(baseURL string) *Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = 3
	rc.RetryWaitMin = 200 * time.Millisecond
	rc.RetryWaitMax = 2 * time.Second
	rc.HTTPClient.Timeout = 5 * time.Second
	rc.Logger = nil

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: rc.StandardClient(),
	}
}

// GetCurrentUnitCost запрашивает актуальную стоимость товара в баллах.
func (c *Client) GetCurrentUnitCost(ctx context.Context, productID int64) (int64, error) {
	if c == nil || c.baseURL == "" {
		return 0, fmt.Errorf("pricing client not configured")
	}

	base := c.baseURL
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}

	url := fmt.Sprintf("%s/api/products/%d/cost", base, productID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return 0, fmt.Errorf("%w: %d", ErrProductNotFound, productID)
	}

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var result ProductCost
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return 0, fmt.Errorf("decode response: %w", err)
	}

	if result.UnitCost <= 0 {
		return 0, fmt.Errorf("non-positive unit cost %d for product %d", result.UnitCost, productID)
	}

	return result.UnitCost, nil
}
