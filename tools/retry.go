package tools

import (
	"context"
	"fmt"
	"time"

	"github.com/avast/retry-go/v4"
)

type ActionFunc = func() error
type LogFunc = func(attempt uint, err error)

// Retry implements an exponential backoff retry mechanism where:
// `initWait` is the wait after the first failure, doubled after each subsequent one
// `retries` is the maximum number of executions
// `action` is the function to execute
// `log` is the function to log errors occurred in each retry
func Retry(ctx context.Context, initWait time.Duration, retries uint, action ActionFunc, log LogFunc) error {
	if initWait <= 0 || retries == 0 {
		return fmt.Errorf("invalid retry arguments: Retry(%v, %d, ...)", initWait, retries)
	}
	return retry.Do(action,
		retry.Context(ctx),
		retry.Attempts(retries),
		retry.Delay(initWait),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(onRetry(log)),
	)
}

// RetryFixed runs action up to `attempts` times, sleeping `delay` between failed executions.
// It returns the number of executions and the last error.
func RetryFixed(ctx context.Context, delay time.Duration, attempts uint, action ActionFunc, log LogFunc) (uint, error) {
	if attempts == 0 {
		return 0, fmt.Errorf("invalid retry arguments: RetryFixed(%v, %d, ...)", delay, attempts)
	}
	var executed uint
	err := retry.Do(
		func() error {
			executed++
			return action()
		},
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.Delay(delay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(onRetry(log)),
	)
	return executed, err
}

func onRetry(log LogFunc) retry.OnRetryFunc {
	if log == nil {
		return func(uint, error) {}
	}
	return retry.OnRetryFunc(log)
}
