// Package awserr maps AWS SDK failures onto the graph error taxonomy.
package awserr

import (
	"context"
	"errors"
	"net"
	"net/http"

	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	"github.com/hupe1980/tagfind/graph"
)

// Classify wraps transport failures, throttling and 5xx responses as
// graph.ErrBackendUnavailable and deadline errors as
// graph.ErrExecutionTimeout. Anything else is returned unchanged.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return graph.Timeout(err)
	}
	if errors.Is(err, context.Canceled) {
		return err
	}

	var maxAttempts *retry.MaxAttemptsError
	if errors.As(err, &maxAttempts) {
		return graph.Unavailable(err)
	}

	var resp *awshttp.ResponseError
	if errors.As(err, &resp) {
		code := resp.HTTPStatusCode()
		if code >= http.StatusInternalServerError || code == http.StatusTooManyRequests {
			return graph.Unavailable(err)
		}
		return err
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return graph.Unavailable(err)
	}
	return err
}
