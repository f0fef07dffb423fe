package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// =============================================================================
// NUMA Topology Metrics
// =============================================================================

var (
	// NUMAEnabled is 1 when NUMA-aware placement is active
	NUMAEnabled = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "numatopo_numa_enabled",
		Help: "Whether NUMA-aware placement is active (1) or not (0)",
	})

	// NUMAFaked is 1 when the node count comes from a synthetic override
	NUMAFaked = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "numatopo_numa_faked",
		Help: "Whether the reported topology is a synthetic override",
	})

	// NUMANodes tracks the number of NUMA nodes visible to the process
	NUMANodes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "numatopo_numa_nodes",
		Help: "Number of NUMA nodes visible to the process",
	})

	// NUMANodeCPUs tracks the number of CPUs attached to each node
	NUMANodeCPUs = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "numatopo_numa_node_cpus",
			Help: "Number of CPUs attached to each NUMA node",
		},
		[]string{"node"},
	)

	// NUMANodeShareBytes tracks the last published share plan per node
	NUMANodeShareBytes = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "numatopo_numa_node_share_bytes",
			Help: "Bytes assigned to each NUMA node by the last published share plan",
		},
		[]string{"node"},
	)

	// NUMADiscoveryFailuresTotal counts discoveries that degraded to a single node
	NUMADiscoveryFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "numatopo_numa_discovery_failures_total",
		Help: "Total number of topology discoveries that fell back to a single node",
	})

	// NUMAMemoryQueryErrorsTotal counts failed address-to-node lookups
	NUMAMemoryQueryErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "numatopo_numa_memory_query_errors_total",
		Help: "Total number of failed address-to-node lookups",
	})
)
