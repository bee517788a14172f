package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cazlyncNotifier/internal/db"
	"cazlyncNotifier/internal/notification"
)

func TestObserveOutcome(t *testing.T) {
	p := notification.Welcome(&db.User{})
	counter := deliveries.WithLabelValues(string(notification.ChannelWelcome), string(notification.StatusDelivered))
	before := testutil.ToFloat64(counter)

	ObserveOutcome(p, notification.Outcome{UserID: "u1", Status: notification.StatusDelivered})
	ObserveOutcome(p, notification.Outcome{UserID: "u2", Status: notification.StatusDelivered})

	assert.Equal(t, before+2, testutil.ToFloat64(counter))
}

func TestObserveEvent(t *testing.T) {
	counter := eventsReceived.WithLabelValues("unknown", "rejected")
	before := testutil.ToFloat64(counter)

	ObserveEvent("", "rejected")

	assert.Equal(t, before+1, testutil.ToFloat64(counter))
}

func TestMiddleware(t *testing.T) {
	e := echo.New()
	e.Use(Middleware)
	e.GET("/ping", func(c echo.Context) error { return c.String(http.StatusOK, "pong") })

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, testutil.CollectAndCount(httpDuration, "http_request_duration_seconds"))
}
