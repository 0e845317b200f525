package migrator

import (
	"fmt"

	"github.com/hashicorp/go-version"
	"github.com/samber/lo"
)

type FilterOptions struct {
	Down   bool
	Type   Type
	Target Target
}

// VersionRange builds the half open range of versions a batch covers:
// (current, target] going up and (target, current] going down.
func VersionRange(current, target string, down bool) (version.Constraints, error) {
	cur, err := version.NewSemver(current)
	if err != nil {
		return nil, fmt.Errorf("%w: current %q: %v", ErrInvalidVersion, current, err)
	}
	tgt, err := version.NewSemver(target)
	if err != nil {
		return nil, fmt.Errorf("%w: target %q: %v", ErrInvalidVersion, target, err)
	}

	low, high := cur, tgt
	if down {
		low, high = tgt, cur
	}
	return version.NewConstraint(fmt.Sprintf("> %s, <= %s", low, high))
}

// InRange keeps the files whose version satisfies the range, preserving
// order.
func InRange(files []MigrationFile, rng version.Constraints) []MigrationFile {
	return lo.Filter(files, func(f MigrationFile, _ int) bool {
		return rng.Check(f.Version)
	})
}

// Filter selects the catalog entries applicable to a move from current to
// target. While nothing is loaded yet the range is the only criterion, which
// lets callers learn what to load. Once definitions are cached, entries must
// be loaded and eligible for the direction, type and target.
func (r *Registry) Filter(files []MigrationFile, current, target string, opts FilterOptions) ([]MigrationFile, error) {
	rng, err := VersionRange(current, target, opts.Down)
	if err != nil {
		return nil, err
	}

	inRange := InRange(files, rng)
	if !r.Loaded() {
		return inRange, nil
	}

	return lo.Filter(inRange, func(f MigrationFile, _ int) bool {
		def, ok := r.Get(f.Filename)
		if !ok {
			return false
		}
		return eligible(def, opts)
	}), nil
}

func eligible(def *Definition, opts FilterOptions) bool {
	if opts.Down && def.Down == nil {
		return false
	}
	if !opts.Down && def.Up == nil {
		return false
	}
	if opts.Type != "" && def.Info.Type != opts.Type {
		return false
	}
	if opts.Target != "" && def.Info.Target != opts.Target {
		return false
	}
	return true
}
