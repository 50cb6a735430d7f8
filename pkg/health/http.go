package health

import (
	"context"
	"fmt"
	"net/http"
)

// HTTPChecker checks that a dependency answers GET url with a 2xx status.
type HTTPChecker struct {
	name   string
	url    string
	client *http.Client
}

func NewHTTPChecker(name, url string) *HTTPChecker {
	return &HTTPChecker{name: name, url: url, client: &http.Client{}}
}

func (c *HTTPChecker) Name() string {
	return c.name
}

func (c *HTTPChecker) Check(ctx context.Context) Result {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return Result{Status: StatusDown, Message: err.Error()}
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return Result{Status: StatusDown, Message: err.Error()}
	}
	_ = resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Result{Status: StatusDown, Message: fmt.Sprintf("status %d", resp.StatusCode)}
	}
	return Result{Status: StatusUp}
}
