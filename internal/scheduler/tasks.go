package scheduler

import (
	"encoding/json"
	"time"

	"labor_pipeline_backend/internal/email"

	"github.com/hibiken/asynq"
)

const TaskAlertEmail = "email.alert"

const TaskComplaintSLAScan = "complaints.sla_scan"

const TaskRemittanceComplianceScan = "remittances.compliance_scan"

type AlertEmailPayload struct {
	Alert email.Alert `json:"alert"`
}

// ScanPayload carries the reference time of a scan. A zero AsOf means
// "now", which is what the periodic scheduler enqueues.
type ScanPayload struct {
	AsOf time.Time `json:"asOf,omitempty"`
}

func NewAlertEmailTask(payload AlertEmailPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAlertEmail, data), nil
}

func ParseAlertEmailPayload(task *asynq.Task) (AlertEmailPayload, error) {
	var payload AlertEmailPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return AlertEmailPayload{}, err
	}
	return payload, nil
}

func NewScanTask(taskType string, payload ScanPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(taskType, data), nil
}

func ParseScanPayload(task *asynq.Task) (ScanPayload, error) {
	var payload ScanPayload
	if len(task.Payload()) == 0 {
		return payload, nil
	}
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return ScanPayload{}, err
	}
	return payload, nil
}
