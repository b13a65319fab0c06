package engine

import (
	"bytes"
	"encoding"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"market-anomaly/internal/classify"
)

// modelFile is the gob wire form of a persisted model. Importance may be
// absent in files written before importance tracking existed; gob leaves
// the field nil on such reads.
type modelFile struct {
	Algorithm  string
	Classifier []byte
	Features   []string
	Importance []classify.Importance
}

// persistable is what a classifier must provide to be saved.
type persistable interface {
	encoding.BinaryMarshaler
	Algorithm() string
}

// Save serializes the trained model, its ordered feature list and its
// importance ranking to path as one unit, creating missing parent
// directories.
func (e *Engine) Save(path string) error {
	if e.clf == nil {
		return fmt.Errorf("no trained model to save")
	}
	p, ok := e.clf.(persistable)
	if !ok {
		return fmt.Errorf("classifier %T does not support serialization", e.clf)
	}

	payload, err := p.MarshalBinary()
	if err != nil {
		log.Error().Err(err).Str("path", path).Msg("model serialization failed")
		return fmt.Errorf("serialize classifier: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Error().Err(err).Str("path", path).Msg("model directory creation failed")
			return fmt.Errorf("create model directory: %w", err)
		}
	}

	var buf bytes.Buffer
	mf := modelFile{
		Algorithm:  p.Algorithm(),
		Classifier: payload,
		Features:   e.modelFeatures,
		Importance: e.importance,
	}
	if err := gob.NewEncoder(&buf).Encode(mf); err != nil {
		log.Error().Err(err).Str("path", path).Msg("model encoding failed")
		return fmt.Errorf("encode model: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		log.Error().Err(err).Str("path", path).Msg("model write failed")
		return fmt.Errorf("write model file: %w", err)
	}

	log.Info().Str("path", path).Strs("features", e.modelFeatures).Msg("anomaly model saved")
	return nil
}

// Load restores a previously saved model, replacing the engine's
// classifier, feature list and importance ranking.
func (e *Engine) Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Error().Str("path", path).Msg("model file does not exist")
			return fmt.Errorf("%w: %s", ErrModelNotFound, path)
		}
		return fmt.Errorf("read model file: %w", err)
	}

	var mf modelFile
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&mf); err != nil {
		log.Error().Err(err).Str("path", path).Msg("model decoding failed")
		return fmt.Errorf("decode model file: %w", err)
	}

	clf, err := classify.Restore(mf.Algorithm, mf.Classifier)
	if err != nil {
		log.Error().Err(err).Str("path", path).Str("algorithm", mf.Algorithm).Msg("classifier restore failed")
		return fmt.Errorf("restore classifier: %w", err)
	}

	e.clf = clf
	e.features = mf.Features
	e.modelFeatures = mf.Features
	e.importance = mf.Importance

	log.Info().Str("path", path).Strs("features", mf.Features).Msg("anomaly model loaded")
	return nil
}
