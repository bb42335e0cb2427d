package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const notifyTimeout = 5 * time.Second

// NotifierConfig defines outbound alert destinations.
type NotifierConfig struct {
	Webhook string
	Command string

	// AllowPrivate lets the webhook target loopback and private ranges.
	AllowPrivate bool
}

// Notifier sends alert activations to a webhook and/or a shell command.
type Notifier struct {
	cfg    NotifierConfig
	client *resty.Client
	log    *zap.Logger
	wg     sync.WaitGroup
}

// NewNotifier creates a notifier.
func NewNotifier(cfg NotifierConfig, log *zap.Logger) *Notifier {
	if log == nil {
		log = zap.NewNop()
	}
	client := resty.New().
		SetTimeout(notifyTimeout).
		SetHeader("Content-Type", "application/json")
	return &Notifier{cfg: cfg, client: client, log: log}
}

// Enabled returns true if any destination is configured.
func (n *Notifier) Enabled() bool {
	return n != nil && (n.cfg.Webhook != "" || n.cfg.Command != "")
}

// Notify sends event asynchronously. Failures are logged.
func (n *Notifier) Notify(event string, payload interface{}) {
	if !n.Enabled() {
		return
	}
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		if err := n.Send(ctx, event, payload); err != nil {
			n.log.Warn("alert notification failed", zap.String("event", event), zap.Error(err))
		}
	}()
}

// Wait blocks until every pending Notify has finished.
func (n *Notifier) Wait() {
	if n != nil {
		n.wg.Wait()
	}
}

// Send delivers event to every configured destination and joins the errors.
func (n *Notifier) Send(ctx context.Context, event string, payload interface{}) error {
	body := map[string]interface{}{
		"event":   event,
		"payload": payload,
		"ts":      time.Now().Format(time.RFC3339),
	}
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}

	var errs []error
	if n.cfg.Webhook != "" {
		if err := n.post(ctx, data); err != nil {
			errs = append(errs, err)
		}
	}
	if n.cfg.Command != "" {
		cmd := exec.CommandContext(ctx, "sh", "-c", n.cfg.Command)
		cmd.Env = append(os.Environ(), "SENSETOP_EVENT="+event, "SENSETOP_PAYLOAD="+string(data))
		if err := cmd.Run(); err != nil {
			errs = append(errs, fmt.Errorf("alert command: %w", err))
		}
	}
	return errors.Join(errs...)
}

func (n *Notifier) post(ctx context.Context, data []byte) error {
	if !n.cfg.AllowPrivate {
		if err := validateWebhookURL(n.cfg.Webhook); err != nil {
			return err
		}
	}
	resp, err := n.client.R().
		SetContext(ctx).
		SetBody(data).
		Post(n.cfg.Webhook)
	if err != nil {
		return fmt.Errorf("webhook: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("webhook: status %d", resp.StatusCode())
	}
	return nil
}

// validateWebhookURL checks that the webhook URL uses http/https and does not
// target localhost, private ranges, link-local, or cloud metadata endpoints.
func validateWebhookURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid webhook URL: %w", err)
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return fmt.Errorf("webhook URL must use http or https scheme, got %q", scheme)
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return errors.New("webhook URL has no host")
	}
	switch host {
	case "localhost", "metadata.google.internal":
		return fmt.Errorf("webhook URL host %q is blocked", host)
	}
	if ip := net.ParseIP(host); ip != nil {
		if ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() || ip.IsUnspecified() {
			return fmt.Errorf("webhook URL host %q is blocked", host)
		}
	}
	return nil
}
