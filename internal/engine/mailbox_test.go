package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/archon-quant/synthalpha/internal/market"
)

func TestMailboxLatestWinsUnderBackpressure(t *testing.T) {
	mb := newSnapshotMailbox()
	done := make(chan struct{})

	for i := 0; i < 5; i++ {
		snap := market.NewEmptySnapshot()
		snap.SnapshotTime = time.Unix(int64(i), 0)
		mb.put(snap)
	}

	got, ok := mb.get(done)
	if !ok {
		t.Fatal("expected a snapshot")
	}
	assert.Equal(t, time.Unix(4, 0), got.SnapshotTime)
}

func TestMailboxGetUnblocksOnDone(t *testing.T) {
	mb := newSnapshotMailbox()
	done := make(chan struct{})
	close(done)

	_, ok := mb.get(done)
	assert.False(t, ok)
}
