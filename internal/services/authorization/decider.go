package authorization

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"coinbank/internal/models"

	"github.com/shopspring/decimal"
)

// Decider is the external authorization decision source.
type Decider interface {
	Check(ctx context.Context, userType models.UserType, amount decimal.Decimal) (bool, error)
}

// HTTPDecider queries a network-reachable authorizer endpoint. The endpoint
// answers GET <url>?user_type=...&amount=... with {"authorized": bool}.
type HTTPDecider struct {
	endpoint string
	client   *http.Client
}

func NewHTTPDecider(endpoint string, timeout time.Duration) *HTTPDecider {
	return &HTTPDecider{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

func (d *HTTPDecider) Check(ctx context.Context, userType models.UserType, amount decimal.Decimal) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.endpoint, nil)
	if err != nil {
		return false, fmt.Errorf("failed to build authorizer request: %w", err)
	}

	q := url.Values{}
	q.Set("user_type", string(userType))
	q.Set("amount", amount.String())
	req.URL.RawQuery = q.Encode()

	resp, err := d.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("authorizer unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("authorizer returned status %d", resp.StatusCode)
	}

	var body struct {
		Authorized bool `json:"authorized"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return false, fmt.Errorf("failed to decode authorizer response: %w", err)
	}
	return body.Authorized, nil
}
