package clients

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/valkey-io/valkey-go"

	"github.com/spacesedan/llmservice/config"
)

const (
	VALKEY_USAGE_KEY_PREFIX = "llmservice:usage:"
	VALKEY_RETRY_DELAY      = 250 * time.Millisecond
	VALKEY_RETRIES          = 3
)

type ValkeyClient struct {
	Client valkey.Client
}

// NewValkeyClient connects and pings the server; a failed ping is returned.
func NewValkeyClient(ctx context.Context, cfg config.ValkeyConfig) (*ValkeyClient, error) {
	opts := valkey.ClientOption{
		InitAddress:      []string{cfg.InitAddress},
		Password:         cfg.Password,
		ConnWriteTimeout: 5 * time.Second,
		SelectDB:         0,
	}
	if cfg.TLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	client, err := valkey.NewClient(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create Valkey client: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if err := client.Do(pingCtx, client.B().Ping().Build()).Error(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping Valkey: %w", err)
	}

	slog.Info("[ValkeyClient] Successfully connected to valkey",
		slog.String("address", cfg.InitAddress))

	return &ValkeyClient{Client: client}, nil
}

func (vc *ValkeyClient) Close() {
	if vc != nil && vc.Client != nil {
		vc.Client.Close()
	}
}

// Increment bumps the usage counter of one task.
func (vc *ValkeyClient) Increment(ctx context.Context, task string) error {
	res := vc.DoWithRetry(ctx, func() valkey.Completed {
		return vc.Client.B().Incr().Key(usageKey(task)).Build()
	}, VALKEY_RETRIES)
	return res.Error()
}

// Counts reads the usage counters of the given tasks. Missing keys count as zero.
func (vc *ValkeyClient) Counts(ctx context.Context, tasks ...string) (map[string]int64, error) {
	completed := make([]valkey.Completed, 0, len(tasks))
	for _, task := range tasks {
		completed = append(completed, vc.Client.B().Get().Key(usageKey(task)).Build())
	}

	counts := make(map[string]int64, len(tasks))
	for i, res := range vc.Client.DoMulti(ctx, completed...) {
		n, err := res.AsInt64()
		if valkey.IsValkeyNil(err) {
			counts[tasks[i]] = 0
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read usage for %s: %w", tasks[i], err)
		}
		counts[tasks[i]] = n
	}
	return counts, nil
}

// DoWithRetry rebuilds the command on every attempt since valkey recycles
// completed commands once they are sent.
func (vc *ValkeyClient) DoWithRetry(ctx context.Context, build func() valkey.Completed, retries int) valkey.ValkeyResult {
	var result valkey.ValkeyResult
	for i := 0; i < retries; i++ {
		result = vc.Client.Do(ctx, build())
		if result.Error() == nil || !isConnectionError(result.Error()) {
			break
		}

		slog.Warn("[ValkeyClient] Do failed",
			slog.Int("attempt", i+1),
			slog.String("error", result.Error().Error()))

		if i == retries-1 {
			break
		}
		select {
		case <-ctx.Done():
			return result
		case <-time.After(VALKEY_RETRY_DELAY):
		}
	}

	return result
}

func usageKey(task string) string {
	return VALKEY_USAGE_KEY_PREFIX + task
}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "EOF") ||
		strings.Contains(msg, "i/o timeout")
}
