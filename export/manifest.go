package export

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/teranos/measure/errors"
	"github.com/teranos/measure/pipeline"
)

// ManifestFile is written at the root of every run directory
const ManifestFile = "run.json"

// Manifest records what produced a run directory
type Manifest struct {
	RunID      string             `json:"run_id"`
	Source     string             `json:"source"`
	PageSize   int                `json:"page_size"`
	Workers    int                `json:"workers"`
	Variants   []string           `json:"variants"`
	Version    string             `json:"version,omitempty"`
	StartedAt  time.Time          `json:"started_at"`
	FinishedAt *time.Time         `json:"finished_at,omitempty"`
	Status     pipeline.RunStatus `json:"status"`
	Summary    *pipeline.Summary  `json:"summary,omitempty"`
}

// WriteManifest replaces run.json
func (d *Dir) WriteManifest(m Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode manifest")
	}
	path := filepath.Join(d.root, ManifestFile)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), 0o644); err != nil {
		return errors.Wrapf(err, "write %s", tmp)
	}
	if err := os.Rename(tmp, path); err != nil {
		return errors.Wrapf(err, "rename into %s", path)
	}
	return nil
}

// ReadManifest loads run.json from a run directory
func ReadManifest(root string) (Manifest, error) {
	var m Manifest
	data, err := os.ReadFile(filepath.Join(root, ManifestFile))
	if err != nil {
		if os.IsNotExist(err) {
			return m, errors.WithHint(errors.NewNotFoundError("no %s in %s", ManifestFile, root),
				"pass the directory a previous `measure run` wrote")
		}
		return m, errors.Wrapf(err, "read manifest of %s", root)
	}
	if err := json.Unmarshal(data, &m); err != nil {
		return m, errors.Wrapf(err, "decode manifest of %s", root)
	}
	return m, nil
}
