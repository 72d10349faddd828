package workers

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestProcessMonitor_Samples_Current_Process(t *testing.T) {
	req := require.New(t)
	monitor := NewProcessMonitorWorker(slog.Default(), time.Hour)

	sample, err := monitor.Sample()

	req.NoError(err)
	req.Equal(int32(os.Getpid()), sample.PID)
	req.NotEmpty(sample.Status)
	req.Greater(sample.RSS, uint64(0))
}

func TestProcessMonitor_Run_Stops_With_Context(t *testing.T) {
	monitor := NewProcessMonitorWorker(slog.Default(), 10*time.Millisecond)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	require.NoError(t, monitor.Run(ctx))
}
