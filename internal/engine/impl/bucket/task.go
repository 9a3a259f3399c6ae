package bucket

import (
	"fmt"
	"sort"
	"time"

	"Go2NetProfile/internal/config"
	"Go2NetProfile/internal/factory"
	"Go2NetProfile/internal/model"
)

// TaskName is the metrics.tasks entry for bucketed aggregation.
const TaskName = "bucket"

func init() {
	factory.RegisterTask(TaskName, func(cfg *config.Config) (model.Task, error) {
		width, err := cfg.Metrics.BucketWidthDuration()
		if err != nil {
			return nil, err
		}
		return New(width)
	})
}

type bucketStat struct {
	bytes   uint64
	packets uint64
}

// Task groups packets into fixed-width time buckets and records the gaps
// between consecutive packets.
type Task struct {
	width        time.Duration
	buckets      map[int64]*bucketStat
	interArrival []time.Duration
	prev         time.Duration
	seen         int
	maxOffset    time.Duration
}

// New creates a bucketed aggregation task.
func New(width time.Duration) (*Task, error) {
	if width <= 0 {
		return nil, fmt.Errorf("bucket width must be positive, got %s", width)
	}
	return &Task{width: width, buckets: make(map[int64]*bucketStat)}, nil
}

// Name returns the name of the task.
func (t *Task) Name() string {
	return TaskName
}

// Index returns the bucket an offset falls into. Offsets are truncated, so an
// offset lying exactly on a boundary opens the next bucket.
func (t *Task) Index(offset time.Duration) int64 {
	idx := int64(offset / t.width)
	if offset < 0 && offset%t.width != 0 {
		idx--
	}
	return idx
}

// ProcessPacket adds the record to its bucket. Records must arrive in capture
// order for the inter-arrival sequence to be meaningful.
func (t *Task) ProcessPacket(record *model.PacketRecord) {
	idx := t.Index(record.Offset)
	b, ok := t.buckets[idx]
	if !ok {
		b = &bucketStat{}
		t.buckets[idx] = b
	}
	b.bytes += uint64(record.Length)
	b.packets++

	if t.seen > 0 {
		t.interArrival = append(t.interArrival, record.Offset-t.prev)
	}
	if t.seen == 0 || record.Offset > t.maxOffset {
		t.maxOffset = record.Offset
	}
	t.prev = record.Offset
	t.seen++
}

// Fill writes the throughput and packet-rate series, the inter-arrival
// sequence and the trace duration into the bundle.
func (t *Task) Fill(bundle *model.ActivityBundle) {
	indexes := make([]int64, 0, len(t.buckets))
	for idx := range t.buckets {
		indexes = append(indexes, idx)
	}
	sort.Slice(indexes, func(i, j int) bool { return indexes[i] < indexes[j] })

	bundle.BucketWidth = t.width
	bundle.Throughput = make([]model.SeriesPoint, len(indexes))
	bundle.PacketRate = make([]model.SeriesPoint, len(indexes))
	for i, idx := range indexes {
		b := t.buckets[idx]
		bundle.Throughput[i] = model.SeriesPoint{Bucket: idx, Value: b.bytes}
		bundle.PacketRate[i] = model.SeriesPoint{Bucket: idx, Value: b.packets}
	}

	bundle.InterArrival = make([]time.Duration, len(t.interArrival))
	copy(bundle.InterArrival, t.interArrival)
	bundle.Duration = t.maxOffset
}

// Reset clears all buckets, preparing for the next trace.
func (t *Task) Reset() {
	t.buckets = make(map[int64]*bucketStat)
	t.interArrival = nil
	t.prev = 0
	t.seen = 0
	t.maxOffset = 0
}
