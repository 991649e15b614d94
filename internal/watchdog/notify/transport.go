// Package notify delivers one text message to one phone number.
package notify

import (
	"context"
	"fmt"
	"time"

	"overdue-watchdog/internal/common/config"
	commonhttp "overdue-watchdog/internal/common/http"
	"overdue-watchdog/internal/common/logger"
)

const ModeDryRun = "dry_run"

// Transport sends a single SMS. A nil error means the provider accepted the message.
type Transport interface {
	Send(ctx context.Context, to, body string) error
	// Mode names the delivery mode for logs and metrics: "sns", "twilio" or "dry_run".
	Mode() string
}

// New picks the transport for cfg. Anything not fully configured falls back to dry-run,
// so a run behaves identically whether or not real delivery is enabled.
func New(ctx context.Context, cfg config.SMSConfig, sendTimeout time.Duration, log logger.Logger) (Transport, error) {
	var t Transport
	switch cfg.DeliveryMode() {
	case config.ProviderSNS:
		snsTransport, err := NewSNSTransportFromConfig(ctx, cfg.SNS)
		if err != nil {
			return nil, err
		}
		t = snsTransport
	case config.ProviderTwilio:
		t = NewTwilioTransport(commonhttp.NewClient(sendTimeout), cfg.Twilio)
	default:
		t = NewDryRun(log)
	}
	return WithTimeout(t, sendTimeout), nil
}

// DryRun logs the intended send and reports success.
type DryRun struct {
	logger logger.Logger
}

func NewDryRun(log logger.Logger) *DryRun {
	return &DryRun{logger: log.WithFields(map[string]interface{}{"component": "notify"})}
}

func (d *DryRun) Send(_ context.Context, to, body string) error {
	d.logger.Info("[dry-run] SMS not sent", map[string]interface{}{
		"to":     to,
		"length": len(body),
	})
	return nil
}

func (d *DryRun) Mode() string { return ModeDryRun }

type timeoutTransport struct {
	next    Transport
	timeout time.Duration
}

// WithTimeout bounds every Send so one stuck contact cannot stall the batch.
func WithTimeout(t Transport, timeout time.Duration) Transport {
	if timeout <= 0 {
		return t
	}
	return &timeoutTransport{next: t, timeout: timeout}
}

func (t *timeoutTransport) Send(ctx context.Context, to, body string) error {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- t.next.Send(ctx, to, body) }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return fmt.Errorf("send to %s: %w", to, ctx.Err())
	}
}

func (t *timeoutTransport) Mode() string { return t.next.Mode() }
