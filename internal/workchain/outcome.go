package workchain

import (
	"fmt"

	"github.com/scfchain/scfchain/internal/structure"
)

// CheckpointRef is an opaque handle to restart state retrieved from a
// partially completed attempt: the file on disk plus a content fingerprint so
// chained restarts can be told apart.
type CheckpointRef struct {
	Path   string `json:"path"`
	Digest string `json:"digest,omitempty"`
}

// Artifacts holds the optional outputs a runner retrieved from a failed
// attempt. Nil fields mean the artifact was not produced or not retrieved.
type Artifacts struct {
	Checkpoint *CheckpointRef
	Structure  *structure.Structure
	Trajectory *structure.Trajectory
}

// Outcome is the terminal result of a single job attempt.
//
// OK=true means the attempt succeeded and Outputs carries the parsed result
// record. Otherwise Classification, ExitStatus and Message describe the
// failure and Artifacts holds whatever restart state could be recovered.
type Outcome struct {
	OK             bool
	Classification Classification
	ExitStatus     int
	Message        string
	Artifacts      Artifacts
	Outputs        map[string]any
}

func Success(outputs map[string]any) Outcome {
	return Outcome{OK: true, Outputs: outputs}
}

func Failed(class Classification, status int, message string) Outcome {
	return Outcome{Classification: class, ExitStatus: status, Message: message}
}

func (o Outcome) Validate() error {
	if o.OK {
		return nil
	}
	if !o.Classification.Valid() {
		return fmt.Errorf("failed outcome carries invalid classification %q", o.Classification)
	}
	if o.ExitStatus == 0 {
		return fmt.Errorf("failed outcome must carry a non-zero exit status")
	}
	return nil
}
