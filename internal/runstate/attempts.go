package runstate

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/scfchain/scfchain/internal/workchain"
)

const attemptsFilename = "attempts.bin"

// SaveAttempts writes the attempt history as a msgpack snapshot, so status
// inspection does not have to replay the full progress feed.
func SaveAttempts(logsRoot string, history []workchain.AttemptRecord) error {
	if err := os.MkdirAll(logsRoot, 0o755); err != nil {
		return err
	}
	b, err := msgpack.Marshal(history)
	if err != nil {
		return fmt.Errorf("encode attempt history: %w", err)
	}
	return os.WriteFile(filepath.Join(logsRoot, attemptsFilename), b, 0o644)
}

// LoadAttempts reads the attempt-history snapshot. A missing file is not an
// error: runs predating the snapshot or killed mid-write simply have none.
func LoadAttempts(logsRoot string) ([]workchain.AttemptRecord, error) {
	b, err := os.ReadFile(filepath.Join(logsRoot, attemptsFilename))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var history []workchain.AttemptRecord
	if err := msgpack.Unmarshal(b, &history); err != nil {
		return nil, fmt.Errorf("decode attempt history: %w", err)
	}
	return history, nil
}
