package factory

import (
	"fmt"

	"Go2NetProfile/internal/config"
	"Go2NetProfile/internal/model"
)

// TaskFactory creates one extraction task from the config.
type TaskFactory func(cfg *config.Config) (model.Task, error)

// taskRegistry holds the mapping of task names to their factory functions.
var taskRegistry = make(map[string]TaskFactory)

// RegisterTask registers a new extraction task with its factory function.
func RegisterTask(name string, factory TaskFactory) {
	if _, exists := taskRegistry[name]; exists {
		panic(fmt.Sprintf("task '%s' already registered", name))
	}
	taskRegistry[name] = factory
}

// CreateTasks creates the tasks listed in metrics.tasks, in order.
func CreateTasks(cfg *config.Config) ([]model.Task, error) {
	tasks := make([]model.Task, 0, len(cfg.Metrics.Tasks))
	for _, name := range cfg.Metrics.Tasks {
		factory, ok := taskRegistry[name]
		if !ok {
			return nil, fmt.Errorf("unknown task: '%s'", name)
		}

		task, err := factory(cfg)
		if err != nil {
			return nil, fmt.Errorf("error creating task '%s': %w", name, err)
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}
