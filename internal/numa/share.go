package numa

import (
	"strconv"

	"github.com/23skdu/numatopo/internal/metrics"
)

// Share returns node's share of total using DefaultGranule and no ignored nodes.
func (t *Topology) Share(node uint32, total uint64) uint64 {
	return t.CalculateShare(node, total, DefaultGranule, 0)
}

// CalculateShare returns the bytes of total assigned to node.
//
// The highest ignoreCount nodes are excluded and get nothing; at least node
// 0 always participates. total is split in whole granules, the first
// (granules % participants) nodes receive one extra granule, and the
// sub-granule remainder goes to the last participating node. The shares of
// all nodes therefore sum to total exactly.
func (t *Topology) CalculateShare(node uint32, total, granule uint64, ignoreCount uint32) uint64 {
	t.assertNode("calculate_share", node)

	participants := uint32(1)
	if ignoreCount < t.count {
		participants = t.count - ignoreCount
	}
	if node >= participants {
		return 0
	}
	if granule == 0 {
		granule = 1
	}

	granules := total / granule
	remainder := total % granule

	share := (granules / uint64(participants)) * granule
	if uint64(node) < granules%uint64(participants) {
		share += granule
	}
	if node == participants-1 {
		share += remainder
	}
	return share
}

// Shares returns the share of every node, indexed by node id.
func (t *Topology) Shares(total, granule uint64, ignoreCount uint32) []uint64 {
	shares := make([]uint64, t.count)
	for node := range shares {
		shares[node] = t.CalculateShare(uint32(node), total, granule, ignoreCount) //nolint:gosec // G115 - node < count
	}
	return shares
}

// PublishShares computes the share plan and exports it as per-node gauges.
func (t *Topology) PublishShares(total, granule uint64, ignoreCount uint32) []uint64 {
	shares := t.Shares(total, granule, ignoreCount)
	for node, share := range shares {
		metrics.NUMANodeShareBytes.WithLabelValues(strconv.Itoa(node)).Set(float64(share))
	}
	return shares
}
