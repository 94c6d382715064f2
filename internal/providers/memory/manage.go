package memory

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/GriffinCanCode/memstore/internal/lock"
)

// delete removes a file, or a directory with all its contents. The
// namespace root itself may never be deleted.
func (p *Provider) delete(ctx context.Context, params map[string]interface{}) (string, error) {
	physical, virtual, err := p.resolve(params, "path")
	if err != nil {
		return "", err
	}

	if physical == filepath.Clean(p.root) {
		return "", &RootDeletionForbiddenError{}
	}

	var removedDir bool
	err = p.coord.WithCoordination(physical, lock.ModeWrite, func() error {
		info, statErr := os.Stat(physical)
		if statErr != nil {
			return &NotFoundError{Path: virtual}
		}

		removedDir = info.IsDir()
		if removedDir {
			if rmErr := os.RemoveAll(physical); rmErr != nil {
				return fmt.Errorf("failed to delete %s: %w", virtual, rmErr)
			}
			return nil
		}
		if rmErr := os.Remove(physical); rmErr != nil {
			return fmt.Errorf("failed to delete %s: %w", virtual, rmErr)
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	if removedDir {
		return fmt.Sprintf("Directory deleted: %s", virtual), nil
	}
	return fmt.Sprintf("File deleted: %s", virtual), nil
}

// rename moves a file or directory to a new virtual path. Both the source
// and destination targets are coordinated; an existing destination is
// refused, never overwritten.
func (p *Provider) rename(ctx context.Context, params map[string]interface{}) (string, error) {
	oldPhysical, oldVirtual, err := p.resolve(params, "old_path")
	if err != nil {
		return "", err
	}
	newPhysical, newVirtual, err := p.resolve(params, "new_path")
	if err != nil {
		return "", err
	}

	err = p.coord.WithRenameCoordination(oldPhysical, newPhysical, func() error {
		if _, statErr := os.Stat(oldPhysical); statErr != nil {
			return &NotFoundError{Path: oldVirtual}
		}
		if _, statErr := os.Stat(newPhysical); statErr == nil {
			return &DestinationExistsError{Path: newVirtual}
		}

		if mkErr := os.MkdirAll(filepath.Dir(newPhysical), 0o755); mkErr != nil {
			return fmt.Errorf("failed to create parent directories for %s: %w", newVirtual, mkErr)
		}
		if mvErr := os.Rename(oldPhysical, newPhysical); mvErr != nil {
			return fmt.Errorf("failed to rename %s to %s: %w", oldVirtual, newVirtual, mvErr)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Renamed %s to %s", oldVirtual, newVirtual), nil
}
