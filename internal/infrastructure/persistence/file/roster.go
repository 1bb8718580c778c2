// Package file reads the tracked roster from a JSON file.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"os"

	"github.com/cfboard/cfboard/internal/domain/shared"
	"github.com/cfboard/cfboard/internal/domain/student"
)

// DefaultRosterPath is where the roster lives when nothing else is configured.
const DefaultRosterPath = "students.json"

// rosterFile is the on-disk format: {"students": ["h1", "h2"]}.
type rosterFile struct {
	Students []string `json:"students"`
}

// Roster reads the handle list on every call so edits to the file show up
// on the next refresh.
type Roster struct {
	path string
}

// NewRoster creates a roster reading path.
func NewRoster(path string) *Roster {
	if path == "" {
		path = DefaultRosterPath
	}
	return &Roster{path: path}
}

var _ student.Roster = (*Roster)(nil)

// Path returns the file the roster reads.
func (r *Roster) Path() string {
	return r.path
}

// Handles returns the normalized handles. A missing or malformed file is
// ErrRosterNotLoaded.
func (r *Roster) Handles(ctx context.Context) ([]student.Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, shared.WrapError("student", "Load", shared.ErrRosterNotLoaded, "roster file does not exist: "+r.path, err)
		}
		return nil, shared.WrapError("student", "Load", shared.ErrRosterNotLoaded, "roster file could not be read", err)
	}

	var f rosterFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, shared.WrapError("student", "Load", shared.ErrRosterNotLoaded, "roster file is not valid JSON", err)
	}

	return student.NormalizeHandles(f.Students), nil
}
