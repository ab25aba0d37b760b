// Package artifact locates the mobile build file produced by a CI job.
package artifact

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

// Location is where a build artifact was found.
type Location struct {
	// Path is the full path to the artifact file.
	Path string

	// InArtifactDir is true when the file was found in the CI artifact
	// archive rather than the raw workspace.
	InArtifactDir bool
}

// Locator searches the artifact archive and the job workspace for a build
// file by exact name.
type Locator struct {
	log logrus.FieldLogger
}

// NewLocator creates a Locator.
func NewLocator(log logrus.FieldLogger) *Locator {
	return &Locator{
		log: log.WithField("component", "locator"),
	}
}

// Find searches artifactDir (when set) and then workspaceDir for a file
// whose base name equals buildName. A match in the artifact archive wins
// over one in the workspace. A nil Location with a nil error means the
// build was not found in either place; absence is not an error.
func (l *Locator) Find(buildName, artifactDir, workspaceDir string) (*Location, error) {
	if artifactDir != "" {
		path, err := findIn(artifactDir, buildName)
		if err != nil {
			return nil, fmt.Errorf("searching artifact directory %s: %w", artifactDir, err)
		}

		if path != "" {
			l.log.WithField("path", path).Debug("Found build in artifact directory")

			return &Location{Path: path, InArtifactDir: true}, nil
		}
	}

	path, err := findIn(workspaceDir, buildName)
	if err != nil {
		return nil, fmt.Errorf("searching workspace %s: %w", workspaceDir, err)
	}

	if path != "" {
		l.log.WithField("path", path).Debug("Found build in workspace")

		return &Location{Path: path, InArtifactDir: false}, nil
	}

	l.log.WithField("build", buildName).Debug("Build not found")

	return nil, nil
}

// findIn walks root for the first regular file named name. A missing root
// is treated as "not found", since the artifact archive only exists for
// jobs that archived something.
func findIn(root, name string) (string, error) {
	var found string

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() || d.Name() != name {
			return nil
		}

		found = path

		return fs.SkipAll
	})
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}

		return "", err
	}

	return found, nil
}
