package metrics

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIncrementCounter(t *testing.T) {
	m := NewMetrics()

	m.IncrementCounter("loads_created")
	m.IncrementCounter("loads_created")
	m.IncrementCounter("calls_received")

	counters := m.GetCounters()
	require.Equal(t, int64(2), counters["loads_created"])
	require.Equal(t, int64(1), counters["calls_received"])
}

func TestErrorRates(t *testing.T) {
	m := NewMetrics()

	m.RecordSuccess("transcription")
	m.RecordSuccess("transcription")
	m.RecordError("transcription")

	rates := m.GetErrorRates()
	require.Equal(t, int64(3), rates["transcription"].Total)
	require.Equal(t, int64(1), rates["transcription"].Errors)
	require.InDelta(t, 33.3, rates["transcription"].ErrorRate, 0.1)
}

func TestConcurrentCounters(t *testing.T) {
	m := NewMetrics()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				m.IncrementCounter("concurrent")
			}
		}()
	}
	wg.Wait()

	require.Equal(t, int64(5000), m.GetCounters()["concurrent"])
}

func TestGetAllMetrics(t *testing.T) {
	m := NewMetrics()
	m.IncrementCounter("loads_created")

	all := m.GetAllMetrics()
	require.Contains(t, all, "uptime_seconds")
	require.Contains(t, all, "counters")
	require.Contains(t, all, "error_rates")
}
