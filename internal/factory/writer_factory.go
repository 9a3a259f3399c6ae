package factory

import (
	"fmt"

	"Go2NetProfile/internal/config"
	"Go2NetProfile/internal/model"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// WriterFactory creates one summary writer from its definition.
type WriterFactory func(def config.WriterDef, logger *zap.Logger) (model.Writer, error)

var writerRegistry = make(map[string]WriterFactory)

// RegisterWriter registers a new summary writer type with its factory function.
func RegisterWriter(typ string, factory WriterFactory) {
	if _, exists := writerRegistry[typ]; exists {
		panic(fmt.Sprintf("writer type '%s' already registered", typ))
	}
	writerRegistry[typ] = factory
}

// CreateWriters creates every enabled writer in summary.writers. On failure the
// writers created so far are closed.
func CreateWriters(cfg *config.Config, logger *zap.Logger) ([]model.Writer, error) {
	var writers []model.Writer
	for _, def := range cfg.Summary.Writers {
		if !def.Enabled {
			logger.Debug("Skipping disabled writer", zap.String("type", def.Type))
			continue
		}

		factory, ok := writerRegistry[def.Type]
		if !ok {
			return nil, multierr.Append(fmt.Errorf("unknown writer type: '%s'", def.Type), closeAll(writers))
		}

		writer, err := factory(def, logger)
		if err != nil {
			return nil, multierr.Append(fmt.Errorf("error creating writer '%s': %w", def.Type, err), closeAll(writers))
		}
		writers = append(writers, writer)
	}
	return writers, nil
}

func closeAll(writers []model.Writer) error {
	var err error
	for _, w := range writers {
		err = multierr.Append(err, w.Close())
	}
	return err
}
