// Package domain holds the visa stage rules. Stages may be recorded in any
// order, but the overall status only advances through contiguous completed
// stages, and a refusal anywhere is terminal.
package domain

import (
	"fmt"
	"strings"
	"time"

	"labor_pipeline_backend/internal/legacy"
	"labor_pipeline_backend/internal/stagegate"
	"labor_pipeline_backend/platform/apperr"

	"github.com/google/uuid"
)

type Stage string

const (
	StageInterview    Stage = "interview"
	StageTradeTest    Stage = "trade_test"
	StageMedical      Stage = "medical"
	StageBiometric    Stage = "biometric"
	StageVisaIssuance Stage = "visa_issuance"
)

// Stages is the fixed processing order.
var Stages = stagegate.New(StageInterview, StageTradeTest, StageMedical, StageBiometric, StageVisaIssuance)

func ParseStage(raw string) (Stage, error) {
	s := Stage(strings.ToLower(strings.TrimSpace(raw)))
	if !Stages.Contains(s) {
		return "", apperr.Validationf("unknown visa stage %q", raw)
	}
	return s, nil
}

// StageStatus is the outcome state of a single stage.
type StageStatus string

const (
	StatusNotApplied StageStatus = "not_applied"
	StatusApplied    StageStatus = "applied"
	StatusInProgress StageStatus = "in_progress"
	StatusCompleted  StageStatus = "completed"
	StatusRefused    StageStatus = "refused"
)

func (s StageStatus) Valid() bool {
	switch s {
	case StatusNotApplied, StatusApplied, StatusInProgress, StatusCompleted, StatusRefused:
		return true
	}
	return false
}

func ParseStageStatus(raw string) (StageStatus, error) {
	v := strings.ToLower(strings.TrimSpace(raw))
	if s := StageStatus(v); s.Valid() {
		return s, nil
	}
	if mapped, ok := legacy.Lookup(legacy.FieldVisaStageStatus, v); ok {
		return StageStatus(mapped), nil
	}
	return "", apperr.Validationf("unknown visa stage status %q", raw)
}

// OverallStatus mirrors the earliest incomplete stage, or a terminal outcome.
type OverallStatus string

const (
	OverallInitiated    OverallStatus = "initiated"
	OverallInterview    OverallStatus = OverallStatus(StageInterview)
	OverallTradeTest    OverallStatus = OverallStatus(StageTradeTest)
	OverallMedical      OverallStatus = OverallStatus(StageMedical)
	OverallBiometric    OverallStatus = OverallStatus(StageBiometric)
	OverallVisaIssuance OverallStatus = OverallStatus(StageVisaIssuance)
	OverallIssued       OverallStatus = "issued"
	OverallRefused      OverallStatus = "refused"
)

func (o OverallStatus) IsTerminal() bool {
	return o == OverallIssued || o == OverallRefused
}

func ParseOverallStatus(raw string) (OverallStatus, error) {
	v := strings.ToLower(strings.TrimSpace(raw))
	if mapped, ok := legacy.Lookup(legacy.FieldVisaOverallStatus, v); ok {
		v = mapped
	}
	o := OverallStatus(v)
	switch o {
	case OverallInitiated, OverallIssued, OverallRefused:
		return o, nil
	}
	if Stages.Contains(Stage(o)) {
		return o, nil
	}
	return "", fmt.Errorf("unknown visa overall status %q", raw)
}

// StageDetails is the detail blob kept per stage.
type StageDetails struct {
	OutcomeDate *time.Time `json:"outcomeDate,omitempty"`
	Center      string     `json:"center,omitempty"`
	Reference   string     `json:"reference,omitempty"`
	Notes       string     `json:"notes,omitempty"`
}

// StageRecord is one stage's state.
type StageRecord struct {
	Status       StageStatus
	Details      StageDetails
	EvidencePath *string
	UpdatedAt    *time.Time
}

// VisaProcess is a candidate's visa application.
type VisaProcess struct {
	ID            uuid.UUID
	CandidateID   uuid.UUID
	Stages        map[Stage]StageRecord
	OverallStatus OverallStatus
	IssuedAt      *time.Time
	RefusedAt     *time.Time
	Version       int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func NewVisaProcess(candidateID uuid.UUID, now time.Time) VisaProcess {
	v := VisaProcess{
		ID:          uuid.New(),
		CandidateID: candidateID,
		Stages:      make(map[Stage]StageRecord, Stages.Len()),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	for _, s := range Stages.Stages() {
		v.Stages[s] = StageRecord{Status: StatusNotApplied}
	}
	v.Recompute(now)
	return v
}

// StageStatus returns the status of stage, not_applied when unrecorded.
func (v *VisaProcess) StageStatus(stage Stage) StageStatus {
	rec, ok := v.Stages[stage]
	if !ok || rec.Status == "" {
		return StatusNotApplied
	}
	return rec.Status
}

func (v *VisaProcess) stageCompleted(s Stage) bool { return v.StageStatus(s) == StatusCompleted }

func (v *VisaProcess) stageRefused(s Stage) bool { return v.StageStatus(s) == StatusRefused }

func (v *VisaProcess) stageActive(s Stage) bool { return v.StageStatus(s) != StatusNotApplied }

// Transition reports a terminal outcome reached by a recompute.
type Transition int

const (
	TransitionNone Transition = iota
	TransitionIssued
	TransitionRefused
)

// Recompute derives overall_status and its timestamps from the stages. It is
// the only writer of those fields.
func (v *VisaProcess) Recompute(now time.Time) Transition {
	prev := v.OverallStatus

	switch {
	case Stages.Any(v.stageRefused):
		v.OverallStatus = OverallRefused
	case Stages.AllComplete(v.stageCompleted):
		v.OverallStatus = OverallIssued
	case !Stages.Any(v.stageActive):
		v.OverallStatus = OverallInitiated
	default:
		stage, _ := Stages.FirstIncomplete(v.stageCompleted)
		v.OverallStatus = OverallStatus(stage)
	}

	if v.OverallStatus == OverallIssued {
		if v.IssuedAt == nil {
			at := now
			v.IssuedAt = &at
		}
	} else {
		v.IssuedAt = nil
	}
	if v.OverallStatus == OverallRefused {
		if v.RefusedAt == nil {
			at := now
			v.RefusedAt = &at
		}
	} else {
		v.RefusedAt = nil
	}

	if v.OverallStatus == prev {
		return TransitionNone
	}
	switch v.OverallStatus {
	case OverallIssued:
		return TransitionIssued
	case OverallRefused:
		return TransitionRefused
	}
	return TransitionNone
}

// RefusedStage returns the first refused stage in order.
func (v *VisaProcess) RefusedStage() (Stage, bool) {
	return Stages.Find(v.stageRefused)
}

// Outcome is a recorded stage result.
type Outcome struct {
	Stage        Stage
	Status       StageStatus
	Details      StageDetails
	EvidencePath *string
}

func (o Outcome) validate() error {
	if !Stages.Contains(o.Stage) {
		return apperr.Validationf("unknown visa stage %q", o.Stage)
	}
	if !o.Status.Valid() {
		return apperr.Validationf("unknown visa stage status %q", o.Status)
	}
	if o.Status == StatusCompleted {
		if o.Details.OutcomeDate == nil || o.Details.OutcomeDate.IsZero() {
			return apperr.Validation("a completed stage requires an outcome date")
		}
		if strings.TrimSpace(o.Details.Center) == "" {
			return apperr.Validation("a completed stage requires a center")
		}
	}
	return nil
}

// RecordOutcome stores a stage outcome regardless of order. It rejects
// changes once the process is terminal and never lets a completed stage
// move to another status.
func (v *VisaProcess) RecordOutcome(o Outcome, now time.Time) (Transition, error) {
	if err := o.validate(); err != nil {
		return TransitionNone, err
	}
	if o.Status == StatusNotApplied {
		return TransitionNone, apperr.Validation("not_applied is the initial state and cannot be recorded")
	}
	if v.OverallStatus.IsTerminal() {
		return TransitionNone, apperr.InvalidTransitionf("visa process is %s; stages can no longer change", v.OverallStatus)
	}
	if current := v.StageStatus(o.Stage); current == StatusCompleted && o.Status != StatusCompleted {
		return TransitionNone, apperr.InvalidTransitionf("%s stage is completed and cannot move to %s", o.Stage, o.Status)
	}
	v.apply(o, now)
	return v.Recompute(now), nil
}

// Override sets a stage outcome ignoring terminal immutability and
// regression. Callers must audit it.
func (v *VisaProcess) Override(o Outcome, now time.Time) (Transition, error) {
	if err := o.validate(); err != nil {
		return TransitionNone, err
	}
	v.apply(o, now)
	return v.Recompute(now), nil
}

func (v *VisaProcess) apply(o Outcome, now time.Time) {
	if v.Stages == nil {
		v.Stages = make(map[Stage]StageRecord, Stages.Len())
	}
	rec := v.Stages[o.Stage]
	rec.Status = o.Status
	rec.Details = o.Details
	if o.EvidencePath != nil {
		rec.EvidencePath = o.EvidencePath
	}
	at := now
	rec.UpdatedAt = &at
	v.Stages[o.Stage] = rec
	v.UpdatedAt = now
}

// IsIssued reports whether every stage is completed.
func (v *VisaProcess) IsIssued() bool {
	return v.OverallStatus == OverallIssued
}
