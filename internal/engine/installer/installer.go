// Package installer links verified binaries into the system-wide install directory.
package installer

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
	"go.trai.ch/zerr"
)

// Installer owns every write to the install directory.
type Installer struct {
	logger ports.Logger
}

// New creates a new Installer.
func New(logger ports.Logger) *Installer {
	return &Installer{logger: logger}
}

// Install replaces the links of every verified binary and removes the stale links recorded
// by the previous run. It never fails; problems are returned as warnings.
func (i *Installer) Install(
	project *domain.Project,
	binaries []*domain.Binary,
	previous []domain.InstallLink,
) ([]domain.InstallLink, []domain.Warning) {
	dir := project.Install.Dir
	var warnings []domain.Warning

	verified := make([]*domain.Binary, 0, len(binaries))
	current := make(map[string]struct{}, len(binaries))
	for _, b := range binaries {
		if b.State != domain.BinaryVerified {
			i.logger.Info(fmt.Sprintf("not installing %s: binary is %s", b.Target, b.State))
			continue
		}
		verified = append(verified, b)
		current[filepath.Join(dir, b.Target)] = struct{}{}
	}

	i.removeStale(project.SourceDir, previous, current)

	if len(verified) == 0 {
		return nil, nil
	}

	if err := os.MkdirAll(dir, domain.DirPerm); err != nil {
		for _, b := range verified {
			warnings = append(warnings, domain.NewWarning(domain.WarnInstallation, b.Target, "cannot create %s: %v", dir, err))
		}
		return nil, warnings
	}

	links := make([]domain.InstallLink, 0, len(verified))
	for _, b := range verified {
		link, err := i.link(dir, b)
		if err != nil {
			warnings = append(warnings, domain.NewWarning(domain.WarnInstallation, b.Target, "%v", err))
			continue
		}
		links = append(links, link)
	}

	return links, warnings
}

func (i *Installer) link(dir string, b *domain.Binary) (domain.InstallLink, error) {
	binary, err := filepath.Abs(b.Path)
	if err != nil {
		return domain.InstallLink{}, zerr.With(zerr.Wrap(err, "cannot resolve binary path"), "path", b.Path)
	}
	if _, err := os.Stat(binary); err != nil {
		return domain.InstallLink{}, zerr.With(zerr.Wrap(err, "binary not found"), "path", binary)
	}

	path := filepath.Join(dir, b.Target)
	if err := removeExisting(path); err != nil {
		return domain.InstallLink{}, zerr.With(zerr.Wrap(err, "cannot replace existing entry"), "path", path)
	}
	if err := os.Symlink(binary, path); err != nil {
		return domain.InstallLink{}, zerr.With(zerr.Wrap(err, "cannot create install link"), "path", path)
	}

	i.logger.Info(fmt.Sprintf("installed %s -> %s", path, binary))
	return domain.InstallLink{Target: b.Target, Path: path, Binary: binary}, nil
}

// removeStale deletes previously recorded links this run does not re-create, as long as
// they still point into the build tree.
func (i *Installer) removeStale(sourceDir string, previous []domain.InstallLink, current map[string]struct{}) {
	root, err := filepath.Abs(sourceDir)
	if err != nil {
		return
	}

	for _, link := range previous {
		if _, keep := current[link.Path]; keep {
			continue
		}

		dest, err := os.Readlink(link.Path)
		if err != nil {
			continue
		}
		if !filepath.IsAbs(dest) {
			dest = filepath.Join(filepath.Dir(link.Path), dest)
		}
		if !within(root, dest) {
			continue
		}

		if err := os.Remove(link.Path); err != nil {
			i.logger.Warn(fmt.Sprintf("cannot remove stale link %s: %v", link.Path, err))
			continue
		}
		i.logger.Info(fmt.Sprintf("removed stale link %s", link.Path))
	}
}

func removeExisting(path string) error {
	if _, err := os.Lstat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func within(root, path string) bool {
	rel, err := filepath.Rel(root, filepath.Clean(path))
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
