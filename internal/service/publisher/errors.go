package publisher

import (
	"fmt"

	"github.com/go-resty/resty/v2"
)

// ConfigurationError means a provider's app credentials are missing. Fatal
// to that provider's flow, not to the system.
type ConfigurationError struct {
	Provider string
	Missing  string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("provider %s is not configured: missing %s", e.Provider, e.Missing)
}

// ValidationError means a pre-flight connection check failed before anything
// was persisted.
type ValidationError struct {
	Platform string
	Reason   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s connection validation failed: %s", e.Platform, e.Reason)
}

// PublishError means the provider rejected a publish request. The raw body is
// the operator's primary debugging signal and is never genericized.
type PublishError struct {
	Platform string
	Status   int
	Body     string
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("%s publish failed with status %d: %s", e.Platform, e.Status, e.Body)
}

// publishErrorFrom wraps a non-2xx provider response.
func publishErrorFrom(platform string, resp *resty.Response) *PublishError {
	return &PublishError{
		Platform: platform,
		Status:   resp.StatusCode(),
		Body:     resp.String(),
	}
}
