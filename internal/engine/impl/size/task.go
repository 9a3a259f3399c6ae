package size

import (
	"Go2NetProfile/internal/config"
	"Go2NetProfile/internal/factory"
	"Go2NetProfile/internal/model"
)

// TaskName is the metrics.tasks entry for the packet size distribution.
const TaskName = "size"

func init() {
	factory.RegisterTask(TaskName, func(*config.Config) (model.Task, error) {
		return &Task{}, nil
	})
}

// Task keeps every packet length of a trace in capture order.
type Task struct {
	sizes []int
}

func (t *Task) Name() string { return TaskName }

func (t *Task) ProcessPacket(record *model.PacketRecord) {
	t.sizes = append(t.sizes, record.Length)
}

func (t *Task) Fill(bundle *model.ActivityBundle) {
	bundle.PacketSizes = make([]int, len(t.sizes))
	copy(bundle.PacketSizes, t.sizes)
}

func (t *Task) Reset() { t.sizes = nil }
