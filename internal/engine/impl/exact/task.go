package exact

import (
	"Go2NetProfile/internal/config"
	"Go2NetProfile/internal/engine/impl/exact/statistic"
	"Go2NetProfile/internal/factory"
	"Go2NetProfile/internal/model"
)

// TaskName is the metrics.tasks entry for exact flow aggregation.
const TaskName = "exact"

func init() {
	factory.RegisterTask(TaskName, func(cfg *config.Config) (model.Task, error) {
		return New(cfg.Metrics.TopFlows), nil
	})
}

// Task counts distinct flows, packets and bytes of a trace exactly.
// It implements the model.Task interface.
type Task struct {
	table    *statistic.Table
	topFlows int
}

// New creates an exact flow aggregation task keeping the topFlows largest flows.
func New(topFlows int) *Task {
	return &Task{table: statistic.NewTable(), topFlows: topFlows}
}

// Name returns the name of the task.
func (t *Task) Name() string {
	return TaskName
}

// ProcessPacket accounts the record to its flow.
func (t *Task) ProcessPacket(record *model.PacketRecord) {
	t.table.Update(record.Flow, record.Offset, record.Length)
}

// Fill writes the flow summary and the largest flows into the bundle.
func (t *Task) Fill(bundle *model.ActivityBundle) {
	packets, bytes := t.table.Totals()
	bundle.Summary = model.FlowSummary{
		Activity:     bundle.Activity,
		UniqueFlows:  uint64(t.table.Len()),
		TotalPackets: packets,
		TotalBytes:   bytes,
	}
	bundle.TopFlows = t.table.Top(t.topFlows)
}

// Reset clears the flow table, preparing for the next trace.
func (t *Task) Reset() {
	t.table.Reset()
}
