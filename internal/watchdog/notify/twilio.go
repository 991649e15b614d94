package notify

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"overdue-watchdog/internal/common/config"
	"overdue-watchdog/internal/common/errors"
	commonhttp "overdue-watchdog/internal/common/http"
)

const DefaultTwilioBaseURL = "https://api.twilio.com"

// TwilioTransport posts to the Twilio Messages REST endpoint.
type TwilioTransport struct {
	client     *commonhttp.Client
	baseURL    string
	accountSID string
	authToken  string
	from       string
}

func NewTwilioTransport(client *commonhttp.Client, cfg config.TwilioConfig) *TwilioTransport {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultTwilioBaseURL
	}
	return &TwilioTransport{
		client:     client,
		baseURL:    strings.TrimRight(baseURL, "/"),
		accountSID: cfg.AccountSID,
		authToken:  cfg.AuthToken,
		from:       cfg.FromNumber,
	}
}

func (t *TwilioTransport) Send(ctx context.Context, to, body string) error {
	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", t.baseURL, url.PathEscape(t.accountSID))
	form := url.Values{
		"To":   {to},
		"From": {t.from},
		"Body": {body},
	}

	resp, err := t.client.PostForm(ctx, endpoint, form, commonhttp.WithBasicAuth(t.accountSID, t.authToken))
	if err != nil {
		return errors.NewNotificationSendFailedError(config.ProviderTwilio, err)
	}
	if !resp.OK() {
		return errors.NewNotificationSendFailedError(config.ProviderTwilio,
			fmt.Errorf("twilio error: %d - %s", resp.StatusCode, strings.TrimSpace(string(resp.Body))))
	}
	return nil
}

func (t *TwilioTransport) Mode() string { return config.ProviderTwilio }
