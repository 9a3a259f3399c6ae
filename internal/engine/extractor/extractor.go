package extractor

import (
	"errors"
	"fmt"

	"Go2NetProfile/internal/config"
	_ "Go2NetProfile/internal/engine/impl/bucket" // Registers bucket task
	_ "Go2NetProfile/internal/engine/impl/exact"  // Registers exact task
	_ "Go2NetProfile/internal/engine/impl/size"   // Registers size task
	"Go2NetProfile/internal/factory"
	"Go2NetProfile/internal/model"
)

// Extractor turns a loaded trace into an activity bundle by running every
// configured task over its records.
type Extractor struct {
	tasks []model.Task
}

// New creates an Extractor with the tasks listed in metrics.tasks.
func New(cfg *config.Config) (*Extractor, error) {
	tasks, err := factory.CreateTasks(cfg)
	if err != nil {
		return nil, err
	}
	if len(tasks) == 0 {
		return nil, errors.New("no metric tasks configured")
	}
	return &Extractor{tasks: tasks}, nil
}

// TaskNames returns the names of the tasks in run order.
func (e *Extractor) TaskNames() []string {
	names := make([]string, len(e.tasks))
	for i, t := range e.tasks {
		names[i] = t.Name()
	}
	return names
}

// Extract feeds the trace's records to every task in capture order and
// collects their results. Tasks are reset first, so an Extractor can be reused
// across activities.
func (e *Extractor) Extract(activity string, trace *model.Trace) (*model.ActivityBundle, error) {
	if trace == nil {
		return nil, fmt.Errorf("no trace for activity '%s'", activity)
	}
	for _, t := range e.tasks {
		t.Reset()
	}
	for i := range trace.Records {
		record := &trace.Records[i]
		for _, t := range e.tasks {
			t.ProcessPacket(record)
		}
	}

	bundle := &model.ActivityBundle{Activity: activity, Source: trace.Path}
	for _, t := range e.tasks {
		t.Fill(bundle)
	}
	bundle.Summary.Activity = activity
	return bundle, nil
}
