package metrics

import (
	"context"
	"errors"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveExecutionCountsOutcomes(t *testing.T) {
	okBefore := testutil.ToFloat64(executionsTotal.WithLabelValues("insert", "ok"))
	errBefore := testutil.ToFloat64(executionsTotal.WithLabelValues("insert", "error"))

	ObserveExecution("insert", 10*time.Millisecond, nil)
	ObserveExecution("insert", 10*time.Millisecond, errors.New("boom"))
	ObserveExecution("insert", 10*time.Millisecond, nil)

	assert.Equal(t, okBefore+2, testutil.ToFloat64(executionsTotal.WithLabelValues("insert", "ok")))
	assert.Equal(t, errBefore+1, testutil.ToFloat64(executionsTotal.WithLabelValues("insert", "error")))
}

func TestObserveSchemaAndGeneration(t *testing.T) {
	before := testutil.ToFloat64(schemaCallsTotal.WithLabelValues("list tables", "error"))
	ObserveSchema("list tables", time.Second, errors.New("denied"))
	assert.Equal(t, before+1, testutil.ToFloat64(schemaCallsTotal.WithLabelValues("list tables", "error")))

	before = testutil.ToFloat64(generationsTotal.WithLabelValues("gemini", "ok"))
	ObserveGeneration("gemini", 2*time.Second, nil)
	assert.Equal(t, before+1, testutil.ToFloat64(generationsTotal.WithLabelValues("gemini", "ok")))
}

func TestServeExposesMetrics(t *testing.T) {
	ObserveExecution("read", time.Millisecond, nil)

	s, err := Serve("127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Shutdown(context.Background()) })

	resp, err := http.Get("http://" + s.Addr() + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `asksql_executions_total{kind="read",outcome="ok"}`)
}
