package ipcmanager

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jnsquire/dapper/internal/core/dapperr"
)

func TestPendingTable_RegisterAndResolve(t *testing.T) {
	pt := newPendingTable()
	pc := pt.register("req-1", time.Second)

	ok := pt.resolve("req-1", []byte("payload"), nil)
	require.True(t, ok)

	res := <-pc.resultCh
	assert.Equal(t, []byte("payload"), res.payload)
	assert.NoError(t, res.err)
}

func TestPendingTable_ResolveUnknownIDReturnsFalse(t *testing.T) {
	pt := newPendingTable()
	assert.False(t, pt.resolve("missing", nil, nil))
}

func TestPendingTable_ResolveOnlyOnce(t *testing.T) {
	pt := newPendingTable()
	pt.register("req-1", time.Second)

	first := pt.resolve("req-1", nil, nil)
	second := pt.resolve("req-1", nil, nil)

	assert.True(t, first)
	assert.False(t, second, "a second resolve for the same id has nothing left to resolve")
}

func TestPendingTable_Forget(t *testing.T) {
	pt := newPendingTable()
	pt.register("req-1", time.Second)
	pt.forget("req-1")

	assert.False(t, pt.resolve("req-1", nil, nil))
}

func TestPendingTable_Drain(t *testing.T) {
	pt := newPendingTable()
	pc1 := pt.register("req-1", time.Second)
	pc2 := pt.register("req-2", time.Second)

	cause := assert.AnError
	pt.drain(cause)

	res1 := <-pc1.resultCh
	res2 := <-pc2.resultCh
	assert.ErrorIs(t, res1.err, cause)
	assert.ErrorIs(t, res2.err, cause)

	// Table is empty after drain.
	assert.False(t, pt.resolve("req-1", nil, nil))
}

func TestPendingTable_SweepExpired_ResolvesOnlyPastDeadline(t *testing.T) {
	pt := newPendingTable()
	expired := pt.register("expired", -time.Second) // already past deadline
	fresh := pt.register("fresh", time.Minute)

	pt.sweepExpired(time.Now())

	select {
	case res := <-expired.resultCh:
		require.Error(t, res.err)
		assert.Equal(t, dapperr.BackendTimeout, dapperr.KindOf(res.err))
	default:
		t.Fatal("expired command should have been resolved")
	}

	select {
	case <-fresh.resultCh:
		t.Fatal("fresh command should not have been resolved")
	default:
	}
}
