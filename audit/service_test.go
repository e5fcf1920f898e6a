package audit

import (
	"context"
	"errors"
	"testing"

	"github.com/questboard/questboard/model"
	"github.com/questboard/questboard/store"
	"github.com/questboard/questboard/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func nop() *zap.Logger { l, _ := zap.NewDevelopment(); return l }

func TestNew_StartsWorker(t *testing.T) {
	st := testutil.SetupTestStore(t)
	svc := New(st, nop())
	require.NotNil(t, svc)
	svc.Stop(context.Background())
	svc.Stop(context.Background()) // idempotent
}

func TestLog_EnqueuedAndFlushed(t *testing.T) {
	st := testutil.SetupTestStore(t)
	svc := New(st, nop())

	questID := int64(7)
	svc.Log(Entry{
		TraceID:    "trace-123",
		Actor:      "Aria",
		QuestID:    &questID,
		Action:     "PATCH /api/quests/:id/status",
		Request:    map[string]string{"status": "Done"},
		Response:   map[string]int{"status": 200},
		IP:         "127.0.0.1",
		DurationMs: 42,
	})

	// Stop flushes remaining entries
	svc.Stop(context.Background())

	logs, err := st.ListAudit(context.Background(), store.AuditFilter{})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "trace-123", logs[0].TraceID)
	assert.Equal(t, "Aria", logs[0].Actor)
	require.NotNil(t, logs[0].QuestID)
	assert.Equal(t, int64(7), *logs[0].QuestID)
	assert.Equal(t, "127.0.0.1", logs[0].IP)
	assert.Equal(t, 42, logs[0].DurationMs)
	assert.JSONEq(t, `{"status":"Done"}`, string(logs[0].Request))
}

func TestLog_BatchFlush(t *testing.T) {
	st := testutil.SetupTestStore(t)
	svc := New(st, nop())

	for i := 0; i < 250; i++ {
		actor := "Aria"
		if i%2 == 1 {
			actor = "Bo"
		}
		svc.Log(Entry{Action: "batch", Actor: actor})
	}
	svc.Stop(context.Background())

	logs, err := st.ListAudit(context.Background(), store.AuditFilter{Actor: "Bo", Limit: 500})
	require.NoError(t, err)
	assert.Len(t, logs, 125)
}

type failingWriter struct{ calls int }

func (f *failingWriter) WriteAudit(context.Context, []*model.AuditLog) error {
	f.calls++
	return errors.New("disk full")
}

func TestLog_WriteFailureIsSwallowed(t *testing.T) {
	w := &failingWriter{}
	svc := New(w, nop())
	svc.Log(Entry{Action: "x"})
	svc.Stop(context.Background())
	assert.Equal(t, 1, w.calls)
}
