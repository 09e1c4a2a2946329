package velostream

import (
	"google.golang.org/protobuf/proto"

	adminpkg "github.com/velostream/velostream/internal/runtime/admin"
	configpkg "github.com/velostream/velostream/internal/runtime/config"
	errspkg "github.com/velostream/velostream/internal/runtime/errors"
	handlerpkg "github.com/velostream/velostream/internal/runtime/handlers"
	idlepkg "github.com/velostream/velostream/internal/runtime/idle"
	idspkg "github.com/velostream/velostream/internal/runtime/ids"
	journalpkg "github.com/velostream/velostream/internal/runtime/journal"
	jsoncodec "github.com/velostream/velostream/internal/runtime/jsoncodec"
	loggingpkg "github.com/velostream/velostream/internal/runtime/logging"
	pipelinepkg "github.com/velostream/velostream/internal/runtime/pipeline"
	ringpkg "github.com/velostream/velostream/internal/runtime/ringbuffer"
	timingpkg "github.com/velostream/velostream/internal/runtime/timing"
	transportpkg "github.com/velostream/velostream/transport"
)

type (
	Config = configpkg.Config

	Pipeline       = pipelinepkg.Pipeline
	PipelineOption = pipelinepkg.Option
	Handler        = pipelinepkg.Handler
	HandlerFactory = pipelinepkg.HandlerFactory
	LifecycleHooks = pipelinepkg.LifecycleHooks
	RateReport     = pipelinepkg.RateReport
	ReportSnapshot = pipelinepkg.ReportSnapshot
	ServiceReport  = pipelinepkg.ServiceReport

	RingBuffer     = ringpkg.RingBuffer
	RingBufferPool = ringpkg.Pool
	ReadHandler    = ringpkg.ReadHandler

	IdleStrategy = idlepkg.Strategy

	TimingWheel   = timingpkg.Wheel
	Timeout       = timingpkg.Timeout
	SnapshotTimer = timingpkg.SnapshotTimer

	AdminMessageHeader = adminpkg.MessageHeader

	JournalStrategy = journalpkg.Strategy
	JournalWriter   = journalpkg.Writer

	LogFields     = loggingpkg.LogFields
	ServiceLogger = loggingpkg.ServiceLogger

	// Transport contract.
	Driver            = transportpkg.Driver
	Subscription      = transportpkg.Subscription
	Publication       = transportpkg.Publication
	Fragment          = transportpkg.Fragment
	FragmentHandler   = transportpkg.FragmentHandler
	Image             = transportpkg.Image
	ImageHandler      = transportpkg.ImageHandler
	Stream            = transportpkg.Stream
	TransportBuilder  = transportpkg.Builder
	TransportConfig   = transportpkg.Config
	TransportRegistry = transportpkg.Registry
)

var (
	NewPipeline = pipelinepkg.New
	WithHooks   = pipelinepkg.WithHooks

	LoggingHooks = pipelinepkg.LoggingHooks
	MetricsHooks = pipelinepkg.MetricsHooks
	TracingHooks = pipelinepkg.TracingHooks

	NewServiceReport = pipelinepkg.NewServiceReport
	SnapshotReport   = pipelinepkg.Snapshot

	NewRingBuffer     = ringpkg.New
	NewRingBufferPool = ringpkg.NewPool

	NewBusySpin  = idlepkg.NewBusySpin
	NewYielding  = idlepkg.NewYielding
	NewParking   = idlepkg.NewParking
	NewBackoff   = idlepkg.NewBackoff
	IdleByName   = idlepkg.ByName

	NewTimingWheel   = timingpkg.NewWheel
	NewSnapshotTimer = timingpkg.NewSnapshotTimer

	WriteLoadSnapshot = adminpkg.WriteLoadMessage
	WriteSaveSnapshot = adminpkg.WriteSaveMessage
	IsAdministrative  = adminpkg.IsAdministrative

	NewJournalWriter     = journalpkg.NewWriter
	NewSeekJournal       = journalpkg.NewSeek
	NewPositionalJournal = journalpkg.NewPositional
	NewSQLiteJournal     = journalpkg.NewSQLite

	ValidateConfig = configpkg.ValidateConfig

	NewSlogServiceLogger = loggingpkg.NewSlogServiceLogger
	NopLogger            = loggingpkg.Nop

	// Modular transport registry. Import individual drivers via:
	//   _ "github.com/velostream/velostream/transport/channel"
	DefaultTransportRegistry = transportpkg.DefaultRegistry
	RegisterTransport        = transportpkg.Register
	BuildTransport           = transportpkg.Build
	NewStream                = transportpkg.NewStream

	Marshal       = jsoncodec.Marshal
	MarshalIndent = jsoncodec.MarshalIndent
	Unmarshal     = jsoncodec.Unmarshal
	Encode        = jsoncodec.Encode
	Decode        = jsoncodec.Decode

	CreateULID = idspkg.CreateULID

	ErrAlreadyStarted     = errspkg.ErrAlreadyStarted
	ErrNotStarted         = errspkg.ErrNotStarted
	ErrRingBufferRequired = errspkg.ErrRingBufferRequired
	ErrHandlerRequired    = errspkg.ErrHandlerRequired
	ErrConfigRequired     = errspkg.ErrConfigRequired
	ErrDriverRequired     = errspkg.ErrDriverRequired
)

// Message type partitioning.
const (
	ApplicationMsgID    = adminpkg.ApplicationMsgID
	AdministrativeMsgID = adminpkg.AdministrativeMsgID

	LoadSnapshotTemplateID = adminpkg.LoadSnapshotTemplateID
	SaveSnapshotTemplateID = adminpkg.SaveSnapshotTemplateID
)

// Offer result codes surfaced from transport publications.
const (
	NotConnected  = transportpkg.NotConnected
	BackPressured = transportpkg.BackPressured
	AdminAction   = transportpkg.AdminAction
	Closed        = transportpkg.Closed
)

// NewProtoHandler builds a handler that decodes application payloads into a
// generated proto message type.
func NewProtoHandler[T proto.Message](pool *RingBufferPool, onProto handlerpkg.ProtoCallback[T], onAdmin handlerpkg.AdminCallback) *handlerpkg.ProtoHandler[T] {
	return handlerpkg.NewProtoHandler(pool, onProto, onAdmin)
}

// NewJSONHandler builds a handler that decodes application payloads as JSON.
func NewJSONHandler[T any](pool *RingBufferPool, onJSON handlerpkg.JSONCallback[T], onAdmin handlerpkg.AdminCallback) *handlerpkg.JSONHandler[T] {
	return handlerpkg.NewJSONHandler(pool, onJSON, onAdmin)
}

// NewProtoMessage allocates a fresh instance of the proto message type T.
func NewProtoMessage[T proto.Message]() T {
	return handlerpkg.NewProtoMessage[T]()
}
