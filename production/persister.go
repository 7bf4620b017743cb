// Package production provides production integrations: snapshot persistence,
// transition publishing and visualization.
package production

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/comalice/mvix"
)

// JSONPersister is a file-based persister writing one JSON file per feature.
type JSONPersister[S any] struct {
	dir string
}

// NewJSONPersister creates a JSONPersister, ensuring the directory exists.
func NewJSONPersister[S any](dir string) (*JSONPersister[S], error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir %s: %w", dir, err)
	}
	return &JSONPersister[S]{dir: dir}, nil
}

func (p *JSONPersister[S]) Save(ctx context.Context, snapshot mvix.Snapshot[S]) error {
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("json marshal: %w", err)
	}
	return writeAtomic(filepath.Join(p.dir, snapshot.FeatureID+".json"), data)
}

func (p *JSONPersister[S]) Load(ctx context.Context, featureID string) (mvix.Snapshot[S], error) {
	var snapshot mvix.Snapshot[S]
	data, err := readSnapshot(filepath.Join(p.dir, featureID+".json"), featureID)
	if err != nil {
		return snapshot, err
	}
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return mvix.Snapshot[S]{}, fmt.Errorf("json unmarshal: %w", err)
	}
	snapshot.FeatureID = featureID
	return snapshot, nil
}

// YAMLPersister is a file-based persister writing one YAML file per feature.
type YAMLPersister[S any] struct {
	dir string
}

// NewYAMLPersister creates a YAMLPersister, ensuring the directory exists.
func NewYAMLPersister[S any](dir string) (*YAMLPersister[S], error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir %s: %w", dir, err)
	}
	return &YAMLPersister[S]{dir: dir}, nil
}

func (p *YAMLPersister[S]) Save(ctx context.Context, snapshot mvix.Snapshot[S]) error {
	data, err := yaml.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("yaml marshal: %w", err)
	}
	return writeAtomic(filepath.Join(p.dir, snapshot.FeatureID+".yaml"), data)
}

func (p *YAMLPersister[S]) Load(ctx context.Context, featureID string) (mvix.Snapshot[S], error) {
	var snapshot mvix.Snapshot[S]
	data, err := readSnapshot(filepath.Join(p.dir, featureID+".yaml"), featureID)
	if err != nil {
		return snapshot, err
	}
	if err := yaml.Unmarshal(data, &snapshot); err != nil {
		return mvix.Snapshot[S]{}, fmt.Errorf("yaml unmarshal: %w", err)
	}
	snapshot.FeatureID = featureID
	return snapshot, nil
}

func readSnapshot(fn, featureID string) ([]byte, error) {
	data, err := os.ReadFile(fn)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("feature %q: %w", featureID, os.ErrNotExist)
		}
		return nil, fmt.Errorf("read %s: %w", fn, err)
	}
	return data, nil
}

// writeAtomic replaces fn so readers never see a partial snapshot.
func writeAtomic(fn string, data []byte) error {
	tmp := fn + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, fn); err != nil {
		return fmt.Errorf("rename %s: %w", tmp, err)
	}
	return nil
}
