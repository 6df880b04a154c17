// Package artifact manages versioned, checksummed Markov model snapshots and
// their movement through the candidate, canary, production and backup slots.
package artifact

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"

	"idscore/internal/ensemble"
)

const (
	// SchemaVersion is stamped on every Meta written by this package.
	SchemaVersion = 1

	KeyPrefix  = "markov:model:"
	PointerKey = "markov:pointer:production"
)

// Status is the trust stage of an artifact.
type Status string

const (
	StatusCandidate  Status = "candidate"
	StatusCanary     Status = "canary"
	StatusProduction Status = "production"
	StatusBackup     Status = "backup"
)

// Ref addresses one artifact. The canary slot holds a single era at a time
// and is unversioned; every other slot is keyed by version, and the
// production pointer decides which production era is live.
type Ref struct {
	Status  Status
	Version string
	Class   ensemble.Label
	Order   int
}

func (r Ref) String() string {
	if r.Status == StatusCanary {
		return fmt.Sprintf("%s:%s:%d", r.Status, r.Class, r.Order)
	}
	return fmt.Sprintf("%s:%s:%s:%d", r.Status, r.Version, r.Class, r.Order)
}

// Key is the storage key of the ref.
func (r Ref) Key() string {
	return KeyPrefix + r.String()
}

// Meta is the typed metadata stored next to every snapshot.
type Meta struct {
	SchemaVersion int            `json:"schema_version"`
	Status        Status         `json:"status"`
	Version       string         `json:"version"`
	Class         ensemble.Label `json:"class"`
	Order         int            `json:"order"`
	Checksum      string         `json:"checksum"`
	SizeBytes     int            `json:"size_bytes"`
	TrainingCount int            `json:"training_count"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	Accuracy      *float64       `json:"accuracy,omitempty"`
	F1            *float64       `json:"f1,omitempty"`
	FraudSamples  int            `json:"fraud_samples"`
	LegitSamples  int            `json:"legit_samples"`
	AnomalyScore  *float64       `json:"anomaly_score,omitempty"`
}

// Ref returns the address this Meta describes.
func (m Meta) Ref() Ref {
	return Ref{Status: m.Status, Version: m.Version, Class: m.Class, Order: m.Order}
}

// Artifact is a serialized model plus its metadata.
type Artifact struct {
	Meta Meta
	Data []byte
}

// Verify checks the stored checksum against the data.
func (a Artifact) Verify() bool {
	return a.Meta.Checksum == Checksum(a.Data)
}

// Pointer names the era currently serving production.
type Pointer struct {
	Version         string    `json:"version"`
	PreviousVersion string    `json:"previous_version,omitempty"`
	Reason          string    `json:"reason"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Info is the per-era summary copied into every artifact's Meta.
type Info struct {
	Accuracy     *float64
	F1           *float64
	FraudSamples int
	LegitSamples int
	AnomalyScore *float64
}

// Checksum is the hex SHA-256 of a serialized snapshot.
func Checksum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// NewVersion returns a sortable era id such as "20250102-150405-1a2b3c4d".
func NewVersion(now time.Time) string {
	return now.UTC().Format("20060102-150405") + "-" + uuid.NewString()[:8]
}
