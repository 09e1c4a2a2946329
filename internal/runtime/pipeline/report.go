package pipeline

import (
	errs "github.com/velostream/velostream/internal/runtime/errors"
)

// RateReport exposes the read counters of one stage worker. Counters are
// monotone and read with acquire ordering; eventually consistent
// observation is sufficient for reporting.
type RateReport interface {
	Name() string
	SuccessfulReads() int64
	FailedReads() int64
}

// ReportSnapshot is a point-in-time, JSON-friendly view of a RateReport.
type ReportSnapshot struct {
	Name            string `json:"name"`
	SuccessfulReads int64  `json:"successful_reads"`
	FailedReads     int64  `json:"failed_reads"`
}

// Snapshot captures the current counter values of a report.
func Snapshot(report RateReport) ReportSnapshot {
	return ReportSnapshot{
		Name:            report.Name(),
		SuccessfulReads: report.SuccessfulReads(),
		FailedReads:     report.FailedReads(),
	}
}

// ServiceReport pairs the ingress counters with the egress counters of one
// endpoint.
type ServiceReport struct {
	ingress RateReport
	egress  RateReport
}

// NewServiceReport builds a report for one endpoint. Nil references are
// usage errors and panic.
func NewServiceReport(ingress, egress RateReport) *ServiceReport {
	if ingress == nil {
		panic(errs.ErrIngressRequired)
	}
	if egress == nil {
		panic(errs.ErrEgressRequired)
	}
	return &ServiceReport{ingress: ingress, egress: egress}
}

// Ingress returns the request-side counters.
func (r *ServiceReport) Ingress() RateReport { return r.ingress }

// Egress returns the response-side counters.
func (r *ServiceReport) Egress() RateReport { return r.egress }
