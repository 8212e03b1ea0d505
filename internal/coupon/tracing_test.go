package coupon

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestMutations_AreTraced(t *testing.T) {
	prev := otel.GetTracerProvider()
	sr := tracetest.NewSpanRecorder()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr)))
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	svc := newService(t)
	ctx := context.Background()
	c, err := svc.Create(ctx, Coupon{StoreID: "s-1", Code: "SPAN", Type: FixedAmount, Value: dec("5"),
		StartsAt: now.Add(-time.Hour), EndsAt: now.Add(time.Hour), IsActive: true})
	require.NoError(t, err)
	desc := "traced"
	_, err = svc.Update(ctx, c.ID, Patch{Description: &desc})
	require.NoError(t, err)
	_, err = svc.Apply(ctx, c.ID)
	require.NoError(t, err)
	_, err = svc.Remove(ctx, c.ID)
	require.NoError(t, err)

	var names []string
	for _, s := range sr.Ended() {
		names = append(names, s.Name())
	}
	assert.Equal(t, []string{"coupon.Create", "coupon.Update", "coupon.Apply", "coupon.Remove"}, names)
}
