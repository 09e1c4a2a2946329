package errors

import sterrors "errors"

var (
	ErrRingBufferRequired   = sterrors.New("velostream: ring buffer is required")
	ErrIdleStrategyRequired = sterrors.New("velostream: idle strategy is required")
	ErrHandlerRequired      = sterrors.New("velostream: service handler is required")
	ErrHandlerFactoryNeeded = sterrors.New("velostream: handler factory is required")
	ErrDriverRequired       = sterrors.New("velostream: transport driver is required")
	ErrLoggerRequired       = sterrors.New("velostream: logger is required")
	ErrConfigRequired       = sterrors.New("velostream: config is required")
	ErrStreamRequired       = sterrors.New("velostream: stream is required")
	ErrRequestStreamNeeded  = sterrors.New("velostream: request stream is required")
	ErrResponseStreamNeeded = sterrors.New("velostream: response stream is required")
	ErrIngressRequired      = sterrors.New("velostream: ingress processor is required")
	ErrEgressRequired       = sterrors.New("velostream: egress processor is required")
	ErrPollerRequired       = sterrors.New("velostream: worker poll function is required")
	ErrJournallingRequired  = sterrors.New("velostream: journalling strategy is required")

	ErrAlreadyStarted = sterrors.New("velostream: already started")
	ErrNotStarted     = sterrors.New("velostream: close before start")
)
