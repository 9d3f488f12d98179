package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveDocumentOp(t *testing.T) {
	m := New(false)

	m.ObserveDocumentOp("create", "notes")
	m.ObserveDocumentOp("create", "notes")
	m.ObserveDocumentOp("delete", "notes")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.DocumentOps.WithLabelValues("create", "notes")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DocumentOps.WithLabelValues("delete", "notes")))
}

func TestNilMetricsAreNoops(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveDocumentOp("list", "notes")
		m.ObserveRevocation()
	})
}

func TestHandlerExposesCollectors(t *testing.T) {
	m := New(false)
	m.ObserveRevocation()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	require.Equal(t, 200, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, "notekeeper_auth_tokens_revoked_total 1"), body)
}
