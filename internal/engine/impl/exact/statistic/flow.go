package statistic

import (
	"sort"
	"time"

	"Go2NetProfile/internal/model"
)

// Table aggregates packets into flows keyed by their four-tuple.
type Table struct {
	flows        map[model.FlowKey]*model.Flow
	totalPackets uint64
	totalBytes   uint64
}

// NewTable creates an empty flow table.
func NewTable() *Table {
	return &Table{flows: make(map[model.FlowKey]*model.Flow)}
}

// Update accounts one packet to its flow, creating the flow on first sight.
func (t *Table) Update(key model.FlowKey, offset time.Duration, length int) {
	t.totalPackets++
	t.totalBytes += uint64(length)

	if flow, ok := t.flows[key]; ok {
		if offset < flow.FirstSeen {
			flow.FirstSeen = offset
		}
		if offset > flow.LastSeen {
			flow.LastSeen = offset
		}
		flow.Packets++
		flow.Bytes += uint64(length)
		return
	}
	t.flows[key] = &model.Flow{
		Key:       key,
		ID:        key.Hash(),
		FirstSeen: offset,
		LastSeen:  offset,
		Packets:   1,
		Bytes:     uint64(length),
	}
}

// Len returns the number of distinct flows.
func (t *Table) Len() int {
	return len(t.flows)
}

// Totals returns the packet and byte sums over all flows.
func (t *Table) Totals() (packets, bytes uint64) {
	return t.totalPackets, t.totalBytes
}

// Get returns a copy of the flow for key.
func (t *Table) Get(key model.FlowKey) (model.Flow, bool) {
	flow, ok := t.flows[key]
	if !ok {
		return model.Flow{}, false
	}
	return *flow, true
}

// Top returns copies of the n largest flows by bytes. Ties are broken by
// packet count and then by key so the order is deterministic.
func (t *Table) Top(n int) []model.Flow {
	if n <= 0 || len(t.flows) == 0 {
		return nil
	}
	all := make([]model.Flow, 0, len(t.flows))
	for _, f := range t.flows {
		all = append(all, *f)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].Bytes != all[j].Bytes {
			return all[i].Bytes > all[j].Bytes
		}
		if all[i].Packets != all[j].Packets {
			return all[i].Packets > all[j].Packets
		}
		return all[i].Key.String() < all[j].Key.String()
	})
	if len(all) > n {
		all = all[:n]
	}
	return all
}

// Reset drops every flow.
func (t *Table) Reset() {
	t.flows = make(map[model.FlowKey]*model.Flow)
	t.totalPackets, t.totalBytes = 0, 0
}
