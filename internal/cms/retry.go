package cms

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// FetchWithRetry fetches an entry, retrying transient failures with
// exponential backoff. Other errors, including ErrNotFound, end the retries
// immediately. notify, if set, is called before each retry.
func (c *Client) FetchWithRetry(ctx context.Context, slug string, notify func(err error, wait time.Duration)) (*Entry, error) {
	var entry *Entry
	op := func() error {
		e, err := c.GetEntry(ctx, slug)
		if err != nil {
			if IsRetryable(err) {
				return err
			}
			return backoff.Permanent(err)
		}
		entry = e
		return nil
	}

	if err := backoff.RetryNotify(op, c.backOff(ctx), notify); err != nil {
		return nil, err
	}
	return entry, nil
}

func (c *Client) backOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	if c.retry.InitialInterval > 0 {
		b.InitialInterval = c.retry.InitialInterval
	}
	if c.retry.MaxInterval > 0 {
		b.MaxInterval = c.retry.MaxInterval
	}
	b.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(b, c.retry.MaxRetries), ctx)
}
