package domain

import "time"

// Stage es la etapa del pipeline que alcanzó un ciclo.
type Stage string

const (
	StageScoring           Stage = "scoring"
	StageDecisionRequested Stage = "decision_requested"
	StageDecisionReceived  Stage = "decision_received"
	StageAssetResolution   Stage = "asset_resolution"
	StageLearningGate      Stage = "learning_gate"
	StageConfidenceGate    Stage = "confidence_gate"
	StageLimitGate         Stage = "limit_gate"
	StageExecution         Stage = "execution"
	StageRecording         Stage = "recording"
)

// CycleReport resume un ciclo para el notifier.
type CycleReport struct {
	CycleID   string
	StartedAt time.Time
	Ranked    []ScoredAsset
	Decision  Decision
	Stage     Stage
	Outcome   string // "hold", "skipped: ...", "executed", "failed", "error: ..."
}
