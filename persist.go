package mvix

import (
	"context"
	"time"
)

// Snapshot is the serializable state of one feature.
type Snapshot[S any] struct {
	FeatureID string    `json:"featureID" yaml:"featureID"`
	State     S         `json:"state" yaml:"state"`
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
}

// Persister stores feature snapshots. Load returns an error wrapping
// os.ErrNotExist when nothing was saved for featureID.
type Persister[S any] interface {
	Save(ctx context.Context, snapshot Snapshot[S]) error
	Load(ctx context.Context, featureID string) (Snapshot[S], error)
}

// Transition records one reduce step.
type Transition[E, S any] struct {
	FeatureID string
	Seq       uint64
	Event     E
	From      S
	To        S
	At        time.Time
}

// Publisher receives every transition of a feature, in order, from the
// reducer task. Publish must not block for long.
type Publisher[E, S any] interface {
	Publish(ctx context.Context, t Transition[E, S]) error
}
