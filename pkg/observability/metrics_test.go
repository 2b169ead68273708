package observability

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/mcpserve/mcpserve/pkg/protocol"
)

func TestMetricsObserver(t *testing.T) {
	m := NewMetrics("mcpserve_test")

	m.OnRequest("tools/call")
	m.OnRequest("tools/call")
	m.OnRequest("ping")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.requests.WithLabelValues("tools/call")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("ping")))

	m.OnResponse("tools/call", 0, 5*time.Millisecond)
	m.OnResponse("tools/call", protocol.ToolNotFound, time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.errors.WithLabelValues("tools/call", "-32003")))
	// Success responses never count as errors.
	assert.Equal(t, 0.0, testutil.ToFloat64(m.errors.WithLabelValues("tools/call", "0")))

	m.OnNotificationError("notifications/initialized", errors.New("bad state"))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.notificationErrors.WithLabelValues("notifications/initialized")))
}

func TestSessionGauge(t *testing.T) {
	m := NewMetrics("mcpserve_test")

	m.OnSessionOpened("a")
	m.OnSessionOpened("b")
	assert.Equal(t, 2.0, testutil.ToFloat64(m.sessions))

	m.OnSessionClosed("a")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.sessions))
}
