package obs

import (
	"context"
	"errors"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimeLogsFailureWithRequestID(t *testing.T) {
	hook := test.NewGlobal()
	defer hook.Reset()

	ctx := context.WithValue(context.Background(), RequestIDKey, "abc")
	err := errors.New("boom")
	Time(ctx, "solver.Solve")(&err)

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, log.WarnLevel, entry.Level)
	assert.Equal(t, "abc", entry.Data["req_id"])
	assert.Equal(t, "solver.Solve", entry.Data["op"])
	assert.Equal(t, err, entry.Data[log.ErrorKey])
}

func TestSetupFallsBackToInfo(t *testing.T) {
	defer log.SetLevel(log.InfoLevel)

	Setup("debug", "text")
	assert.Equal(t, log.DebugLevel, log.GetLevel())

	Setup("loud", "json")
	assert.Equal(t, log.InfoLevel, log.GetLevel())
}
