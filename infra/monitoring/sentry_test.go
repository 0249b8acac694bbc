package monitoring

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/chpcoupling/config"
	coremon "github.com/kilianp07/chpcoupling/core/monitoring"
)

type captureTransport struct {
	events []*sentry.Event
}

func (t *captureTransport) Configure(sentry.ClientOptions)        {}
func (t *captureTransport) SendEvent(e *sentry.Event)             { t.events = append(t.events, e) }
func (t *captureTransport) Flush(time.Duration) bool              { return true }
func (t *captureTransport) FlushWithContext(context.Context) bool { return true }
func (t *captureTransport) Close()                                {}

func TestNewSentryMonitorWithoutDSN(t *testing.T) {
	m, err := NewSentryMonitor(config.SentryConfig{})
	require.NoError(t, err)
	assert.IsType(t, coremon.NopMonitor{}, m)
}

func TestNewSentryMonitorBadDSN(t *testing.T) {
	_, err := NewSentryMonitor(config.SentryConfig{DSN: "not a dsn"})
	assert.Error(t, err)
}

func TestSentryMonitorTags(t *testing.T) {
	tr := &captureTransport{}
	client, err := sentry.NewClient(sentry.ClientOptions{Dsn: "https://key@sentry.example.com/1", Transport: tr})
	require.NoError(t, err)
	m := &sentryMonitor{hub: sentry.NewHub(client, sentry.NewScope())}

	m.CaptureException(nil, nil)
	m.CaptureException(errors.New("lp infeasible"), map[string]string{"pair": "bhkw", "command": "solve"})
	m.Flush(time.Second)

	require.Len(t, tr.events, 1)
	assert.Equal(t, "bhkw", tr.events[0].Tags["pair"])
	assert.Equal(t, "solve", tr.events[0].Tags["command"])
	require.NotEmpty(t, tr.events[0].Exception)
	assert.Equal(t, "lp infeasible", tr.events[0].Exception[0].Value)
}
