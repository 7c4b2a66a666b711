package engine

import "github.com/archon-quant/synthalpha/internal/market"

// snapshotMailbox is a single-slot, latest-wins handoff between the
// aggregator's publish tick and the detection pass (§5: "the aggregator
// drops older snapshots — only the newest undelivered snapshot per
// consumer is retained"). A full mailbox is drained before the new value
// is sent, so Put never blocks on a slow consumer.
type snapshotMailbox struct {
	ch chan market.MarketSnapshot
}

func newSnapshotMailbox() *snapshotMailbox {
	return &snapshotMailbox{ch: make(chan market.MarketSnapshot, 1)}
}

// put replaces whatever snapshot is currently waiting, if any, with snap.
func (m *snapshotMailbox) put(snap market.MarketSnapshot) {
	for {
		select {
		case m.ch <- snap:
			return
		default:
			select {
			case <-m.ch:
			default:
			}
		}
	}
}

// get blocks until a snapshot is available or done is closed.
func (m *snapshotMailbox) get(done <-chan struct{}) (market.MarketSnapshot, bool) {
	select {
	case snap := <-m.ch:
		return snap, true
	case <-done:
		return market.MarketSnapshot{}, false
	}
}
