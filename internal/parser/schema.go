package parser

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/zeebo/blake3"

	"github.com/scfchain/scfchain/internal/pyscf"
	"github.com/scfchain/scfchain/internal/workchain"
)

// resultsSchema constrains the shape of results.json before field-level
// decoding. Unknown extra keys are allowed; the script is free to dump more
// than the parser converts.
const resultsSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "properties": {
    "total_energy": {"type": "number"},
    "is_converged": {"type": "boolean"},
    "is_optimizer_converged": {"type": "boolean"},
    "optimized_coordinates": {
      "type": "array",
      "items": {"type": "array", "items": {"type": "number"}, "minItems": 3, "maxItems": 3}
    },
    "trajectory_coordinates": {
      "type": "array",
      "items": {
        "type": "array",
        "items": {"type": "array", "items": {"type": "number"}, "minItems": 3, "maxItems": 3}
      }
    },
    "forces": {
      "type": "array",
      "items": {"type": "array", "items": {"type": "number"}, "minItems": 3, "maxItems": 3}
    },
    "molecular_orbitals": {
      "type": "object",
      "properties": {
        "energies": {"type": "array", "items": {"type": "number"}},
        "labels": {"type": "array", "items": {"type": "string"}}
      },
      "required": ["energies", "labels"]
    }
  },
  "required": ["is_converged"]
}`

var compiledResultsSchema = jsonschema.MustCompileString("results.schema.json", resultsSchema)

func validateResultsDocument(raw []byte) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var doc interface{}
	if err := dec.Decode(&doc); err != nil {
		return err
	}
	return compiledResultsSchema.Validate(doc)
}

// attachCheckpoint returns a fingerprinted reference to the retrieved
// checkpoint file, or nil if this attempt left none behind.
func attachCheckpoint(dir string) *workchain.CheckpointRef {
	path := filepath.Join(dir, pyscf.FilenameCheckpoint)
	b, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	h := blake3.New()
	_, _ = h.Write(b)
	return &workchain.CheckpointRef{
		Path:   path,
		Digest: fmt.Sprintf("%x", h.Sum(nil)),
	}
}
