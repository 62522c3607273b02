package shuffle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCompressionTime_Accumulates(t *testing.T) {
	var ct CompressionTime

	ct.Add(1500 * time.Microsecond)
	ct.Add(500 * time.Microsecond)

	require.Equal(t, int64(2000), ct.Micros())
	require.Equal(t, 2*time.Millisecond, ct.Duration())
}

func TestCompressionTime_AddSince(t *testing.T) {
	var ct CompressionTime

	start := time.Now().Add(-5 * time.Millisecond)
	ct.AddSince(start)

	require.GreaterOrEqual(t, ct.Micros(), int64(5000))
}

func TestCompressionTime_NilReceiver(t *testing.T) {
	var ct *CompressionTime

	// Callers that skip measuring pass nil all the way down.
	ct.Add(time.Second)
	ct.AddSince(time.Now())
}

func TestCompressionTime_SubMicrosecondTruncates(t *testing.T) {
	var ct CompressionTime

	ct.Add(999 * time.Nanosecond)
	require.Equal(t, int64(0), ct.Micros())
}
