package domain

import "time"

// SyncMode is the branch a synchronisation cycle took.
type SyncMode string

// Sync modes.
const (
	// SyncBootstrap builds a collection that did not exist.
	SyncBootstrap SyncMode = "bootstrap"

	// SyncIncremental diffs the crawl against an existing collection.
	SyncIncremental SyncMode = "incremental"
)

// SyncPhase is the step a running sync is in.
type SyncPhase string

// Sync phases.
const (
	PhaseIdle     SyncPhase = "idle"
	PhaseCrawling SyncPhase = "crawling"
	PhaseChunking SyncPhase = "chunking"
	PhaseDeleting SyncPhase = "deleting"
	PhaseIndexing SyncPhase = "indexing"
	PhaseLoading  SyncPhase = "loading"
)

// SyncReport summarises one synchronisation cycle.
type SyncReport struct {
	Mode       SyncMode      `json:"mode"`
	Collection string        `json:"collection"`
	Documents  int           `json:"documents"`
	Passages   int           `json:"passages"`
	Inserted   int           `json:"inserted"`
	Deleted    int           `json:"deleted"`
	Unchanged  int           `json:"unchanged"`
	StartedAt  time.Time     `json:"started_at"`
	Duration   time.Duration `json:"duration"`
}

// Changed reports whether the cycle touched the index.
func (r *SyncReport) Changed() bool {
	return r.Inserted > 0 || r.Deleted > 0
}

// SyncPlan is the diff between a crawl and the stored fingerprints.
type SyncPlan struct {
	// ToInsert are passages whose fingerprint is not stored.
	ToInsert []Passage

	// Matched are fingerprints present in both the crawl and the store.
	Matched []string

	// ToDelete are stored fingerprints absent from the crawl, sorted.
	ToDelete []string
}

// SyncRun is a persisted record of one sync attempt.
type SyncRun struct {
	Collection string    `json:"collection"`
	StartedAt  time.Time `json:"started_at"`
	EndedAt    time.Time `json:"ended_at"`
	Success    bool      `json:"success"`
	Error      string    `json:"error,omitempty"`

	// Report is nil for failed runs.
	Report *SyncReport `json:"report,omitempty"`
}

// NewSyncRun builds a run record from a finished cycle.
func NewSyncRun(collection string, started time.Time, report *SyncReport, err error) SyncRun {
	run := SyncRun{
		Collection: collection,
		StartedAt:  started,
		EndedAt:    time.Now(),
		Success:    err == nil,
		Report:     report,
	}
	if err != nil {
		run.Error = err.Error()
		run.Report = nil
	}
	return run
}
