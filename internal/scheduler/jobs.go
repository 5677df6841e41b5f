package scheduler

import (
	"context"
	"time"

	complaintsvc "labor_pipeline_backend/internal/complaints/service"
	remittancesvc "labor_pipeline_backend/internal/remittances/service"
)

type BreachScanner interface {
	ScanForBreaches(ctx context.Context, asOf time.Time) (complaintsvc.ScanResult, error)
}

type ComplianceScanner interface {
	ScanCompliance(ctx context.Context, asOf time.Time) (remittancesvc.ScanResult, error)
}

// ComplaintSLAJob flags overdue complaints. Triggers within the same minute
// share one run.
func ComplaintSLAJob(s BreachScanner) Job {
	return Job{
		Name:       JobComplaintSLA,
		Resolution: time.Minute,
		Scan: func(ctx context.Context, asOf time.Time) (int, error) {
			res, err := s.ScanForBreaches(ctx, asOf)
			return len(res.Breached), err
		},
	}
}

// RemittanceComplianceJob evaluates the remittance window once per UTC day.
func RemittanceComplianceJob(s ComplianceScanner) Job {
	return Job{
		Name:       JobRemittanceCompliance,
		Resolution: 24 * time.Hour,
		Scan: func(ctx context.Context, asOf time.Time) (int, error) {
			res, err := s.ScanCompliance(ctx, asOf)
			return len(res.Created) + len(res.Raised), err
		},
	}
}
