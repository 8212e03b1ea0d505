package refund

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func recordSpans(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	prev := otel.GetTracerProvider()
	sr := tracetest.NewSpanRecorder()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr)))
	t.Cleanup(func() { otel.SetTracerProvider(prev) })
	return sr
}

func TestLineItemEdits_AreTraced(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := f.paidOrder(t, "0")
	r, err := f.svc.Create(ctx, CreateInput{OrderID: o.ID, Pending: true, LineItems: []LineInput{lineFor(o, 1, "25")}})
	require.NoError(t, err)

	sr := recordSpans(t)
	r, err = f.svc.AddLineItem(ctx, r.ID, lineFor(o, 1, "25"))
	require.NoError(t, err)
	_, err = f.svc.UpdateLineItem(ctx, r.LineItems[1].ID, true)
	require.NoError(t, err)
	_, err = f.svc.RemoveLineItem(ctx, r.LineItems[0].ID)
	require.NoError(t, err)
	_, err = f.svc.Update(ctx, r.ID, map[string]any{"amount": "1"})
	require.Error(t, err)
	require.NoError(t, f.svc.Remove(ctx, r.ID))

	status := map[string]codes.Code{}
	for _, s := range sr.Ended() {
		status[s.Name()] = s.Status().Code
	}
	for _, name := range []string{"refund.AddLineItem", "refund.UpdateLineItem", "refund.RemoveLineItem", "refund.Remove"} {
		code, ok := status[name]
		assert.True(t, ok, "missing span %s", name)
		assert.NotEqual(t, codes.Error, code, name)
	}
	assert.Equal(t, codes.Error, status["refund.Update"], "rejected update is recorded as an error")
}
