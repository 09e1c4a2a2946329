package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"

	errs "github.com/velostream/velostream/internal/runtime/errors"
)

type stubReport struct {
	name       string
	successful int64
	failed     int64
}

func (s stubReport) Name() string           { return s.name }
func (s stubReport) SuccessfulReads() int64 { return s.successful }
func (s stubReport) FailedReads() int64     { return s.failed }

func TestNewServiceReportNilIngressPanics(t *testing.T) {
	assert.PanicsWithValue(t, errs.ErrIngressRequired, func() {
		NewServiceReport(nil, stubReport{name: "egress"})
	})
}

func TestNewServiceReportNilEgressPanics(t *testing.T) {
	assert.PanicsWithValue(t, errs.ErrEgressRequired, func() {
		NewServiceReport(stubReport{name: "ingress"}, nil)
	})
}

func TestServiceReportExposesBothSides(t *testing.T) {
	in := stubReport{name: "ingress", successful: 10, failed: 2}
	out := stubReport{name: "egress", successful: 8, failed: 4}

	report := NewServiceReport(in, out)
	assert.Equal(t, "ingress", report.Ingress().Name())
	assert.Equal(t, "egress", report.Egress().Name())
}

func TestSnapshotCapturesCounters(t *testing.T) {
	snap := Snapshot(stubReport{name: "w", successful: 5, failed: 3})

	assert.Equal(t, ReportSnapshot{Name: "w", SuccessfulReads: 5, FailedReads: 3}, snap)
}
