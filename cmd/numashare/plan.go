package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/23skdu/numatopo/internal/numa"
)

var (
	primaryColor = lipgloss.Color("#7C3AED")
	mutedColor   = lipgloss.Color("#6B7280")

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(primaryColor).
			Padding(0, 2)

	nodeStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7aa2f7"))

	dimStyle = lipgloss.NewStyle().
			Foreground(mutedColor)
)

// Plan is a per-node share plan for one total
type Plan struct {
	Support     string      `json:"support"`
	Enabled     bool        `json:"enabled"`
	Faked       bool        `json:"faked"`
	Count       uint32      `json:"count"`
	Total       uint64      `json:"total"`
	Granule     uint64      `json:"granule"`
	IgnoreCount uint32      `json:"ignore_count"`
	Shares      []NodeShare `json:"shares"`
}

// NodeShare is the share of a single node
type NodeShare struct {
	Node     uint32 `json:"node"`
	Bytes    uint64 `json:"bytes"`
	Granules uint64 `json:"granules"`
	CPUs     []int  `json:"cpus"`
}

// BuildPlan computes and publishes the share plan for cfg
func BuildPlan(topo *numa.Topology, cfg *Config) Plan {
	shares := topo.PublishShares(cfg.Total, cfg.Granule, cfg.IgnoreNodes)

	plan := Plan{
		Support:     topo.String(),
		Enabled:     topo.IsEnabled(),
		Faked:       topo.IsFaked(),
		Count:       topo.Count(),
		Total:       cfg.Total,
		Granule:     cfg.Granule,
		IgnoreCount: cfg.IgnoreNodes,
		Shares:      make([]NodeShare, 0, len(shares)),
	}
	for node, bytes := range shares {
		id := uint32(node) //nolint:gosec // G115 - node < count
		plan.Shares = append(plan.Shares, NodeShare{
			Node:     id,
			Bytes:    bytes,
			Granules: bytes / cfg.Granule,
			CPUs:     topo.NodeCPUs(id),
		})
	}
	return plan
}

// WriteJSON encodes the plan as indented JSON
func WriteJSON(w io.Writer, plan Plan) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(plan)
}

// WriteText renders the plan for a terminal
func WriteText(w io.Writer, plan Plan) error {
	var b strings.Builder

	b.WriteString(titleStyle.Render("NUMA Share Plan"))
	b.WriteString("\n\n")
	b.WriteString(fmt.Sprintf("  NUMA support: %s    nodes: %d\n", plan.Support, plan.Count))
	b.WriteString(fmt.Sprintf("  total: %s    granule: %s    ignored: %d\n\n",
		formatBytes(plan.Total), formatBytes(plan.Granule), plan.IgnoreCount))

	for _, share := range plan.Shares {
		b.WriteString(fmt.Sprintf("  %s %-12s %s\n",
			nodeStyle.Render(fmt.Sprintf("Node %-3d", share.Node)),
			formatBytes(share.Bytes),
			dimStyle.Render(fmt.Sprintf("(%d granules)", share.Granules))))
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// formatBytes renders a byte count with a binary unit
func formatBytes(n uint64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := uint64(unit), 0
	for v := n / unit; v >= unit && exp < 5; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
