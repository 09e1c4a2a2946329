package watermillbridge

import (
	"github.com/ThreeDotsLabs/watermill"

	"github.com/velostream/velostream/internal/runtime/logging"
)

// NewLoggerAdapter converts a ServiceLogger into a watermill.LoggerAdapter
// so wrapped pub/subs log through the runtime's logger.
func NewLoggerAdapter(log logging.ServiceLogger) watermill.LoggerAdapter {
	if log == nil {
		log = logging.Nop()
	}
	return &loggerAdapter{base: log}
}

type loggerAdapter struct {
	base logging.ServiceLogger
}

func (a *loggerAdapter) Error(msg string, err error, fields watermill.LogFields) {
	a.base.Error(msg, err, logging.LogFields(fields))
}

func (a *loggerAdapter) Info(msg string, fields watermill.LogFields) {
	a.base.Info(msg, logging.LogFields(fields))
}

func (a *loggerAdapter) Debug(msg string, fields watermill.LogFields) {
	a.base.Debug(msg, logging.LogFields(fields))
}

func (a *loggerAdapter) Trace(msg string, fields watermill.LogFields) {
	a.base.Debug(msg, logging.LogFields(fields))
}

func (a *loggerAdapter) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return &loggerAdapter{base: a.base.With(logging.LogFields(fields))}
}
