package engine

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateWebhookURL(t *testing.T) {
	cases := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{"https_valid", "https://hooks.slack.com/test", false},
		{"http_valid", "http://example.com/webhook", false},

		{"ftp_blocked", "ftp://example.com", true},

		{"localhost_blocked", "http://localhost/webhook", true},
		{"loopback_blocked", "http://127.0.0.1/webhook", true},
		{"ipv6_loopback_blocked", "http://[::1]/webhook", true},

		{"metadata_blocked", "http://169.254.169.254/latest", true},

		{"private_10_blocked", "http://10.0.0.1/webhook", true},
		{"private_172_blocked", "http://172.16.0.1/webhook", true},
		{"private_192_blocked", "http://192.168.1.1/webhook", true},

		{"empty_string", "", true},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			err := validateWebhookURL(c.url)
			if c.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNotifierWebhook(t *testing.T) {
	var got map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	n := NewNotifier(NotifierConfig{Webhook: srv.URL, AllowPrivate: true}, nil)
	require.True(t, n.Enabled())
	require.NoError(t, n.Send(context.Background(), "alert", map[string]string{"id": "a1"}))

	assert.Equal(t, "alert", got["event"])
	assert.Equal(t, map[string]interface{}{"id": "a1"}, got["payload"])
	assert.NotEmpty(t, got["ts"])
}

func TestNotifierWebhookBlocked(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("blocked webhook must not be called")
	}))
	defer srv.Close()

	n := NewNotifier(NotifierConfig{Webhook: srv.URL}, nil)
	assert.Error(t, n.Send(context.Background(), "alert", nil))
}

func TestNotifierWebhookStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	n := NewNotifier(NotifierConfig{Webhook: srv.URL, AllowPrivate: true}, nil)
	assert.ErrorContains(t, n.Send(context.Background(), "alert", nil), "502")
}

func TestNotifierCommand(t *testing.T) {
	out := filepath.Join(t.TempDir(), "event")
	n := NewNotifier(NotifierConfig{Command: `printf %s "$SENSETOP_EVENT" > ` + out}, nil)
	n.Notify("alert", nil)
	n.Wait()

	b, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "alert", string(b))
}

func TestNotifierDisabled(t *testing.T) {
	n := NewNotifier(NotifierConfig{}, nil)
	assert.False(t, n.Enabled())
	n.Notify("alert", nil)
	n.Wait()

	var nilNotifier *Notifier
	assert.False(t, nilNotifier.Enabled())
}
