package migrator

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path"
	"sort"
	"strconv"
	"strings"

	"github.com/hashicorp/go-version"
)

const migrationExt = ".go"

// MigrationFile is one entry of the migration catalog, derived from the
// filename alone. It carries no behavior; the definition is resolved by the
// Registry.
type MigrationFile struct {
	// Filename is the base name, e.g. v12_1_0-1565966402-add-nlu-threshold.go
	Filename string
	Version  *version.Version
	// Date is the timestamp segment of the filename, used for ordering.
	Date  int64
	Title string
	// Location is the slash separated path of the file inside the scanned fs.
	Location string
}

// Source lists the migration catalog.
type Source interface {
	List(ctx context.Context) ([]MigrationFile, error)
}

// FSSource scans a directory of an fs.FS on every List call.
type FSSource struct {
	fsys fs.FS
	dir  string
}

func NewFSSource(fsys fs.FS, dir string) *FSSource {
	return &FSSource{fsys: fsys, dir: dir}
}

// NewDirSource scans a directory on disk.
func NewDirSource(dir string) *FSSource {
	return &FSSource{fsys: os.DirFS(dir), dir: "."}
}

func (s *FSSource) List(ctx context.Context) ([]MigrationFile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return Scan(s.fsys, s.dir)
}

// isCandidate reports whether a base name looks like a migration file at all.
// Helpers, tests and the registry table live next to migrations and are
// skipped.
func isCandidate(name string) bool {
	if !strings.HasSuffix(name, migrationExt) || strings.HasSuffix(name, "_test.go") {
		return false
	}
	return len(name) > 1 && name[0] == 'v' && name[1] >= '0' && name[1] <= '9'
}

// ParseFilename extracts version, timestamp and title from a migration file
// name. The name may contain a directory part.
func ParseFilename(name string) (MigrationFile, error) {
	base := path.Base(name)
	stem := strings.TrimSuffix(base, migrationExt)

	parts := strings.SplitN(stem, "-", 3)
	if len(parts) != 3 || parts[2] == "" {
		return MigrationFile{}, &FilenameError{Filename: base, Reason: "expected v<version>-<timestamp>-<title>"}
	}

	raw := strings.ReplaceAll(strings.TrimPrefix(parts[0], "v"), "_", ".")
	v, err := version.NewSemver(raw)
	if err != nil {
		return MigrationFile{}, &FilenameError{Filename: base, Reason: "version " + raw + " is not semver"}
	}

	date, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return MigrationFile{}, &FilenameError{Filename: base, Reason: "timestamp " + parts[1] + " is not an integer"}
	}

	return MigrationFile{
		Filename: base,
		Version:  v,
		Date:     date,
		Title:    parts[2],
		Location: name,
	}, nil
}

// Scan walks dir recursively and returns every migration file sorted by its
// timestamp. A candidate with a malformed name fails the whole scan.
func Scan(fsys fs.FS, dir string) ([]MigrationFile, error) {
	if _, err := fs.Stat(fsys, dir); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &CatalogError{Dir: dir, Err: ErrDirectoryNotFound}
		}
		return nil, &CatalogError{Dir: dir, Err: err}
	}

	var files []MigrationFile
	err := fs.WalkDir(fsys, dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !isCandidate(d.Name()) {
			return nil
		}

		file, err := ParseFilename(p)
		if err != nil {
			return err
		}
		files = append(files, file)
		return nil
	})
	if err != nil {
		var fe *FilenameError
		if errors.As(err, &fe) {
			return nil, err
		}
		return nil, &CatalogError{Dir: dir, Err: err}
	}

	SortFiles(files)
	return files, nil
}

// SortFiles orders files by timestamp, then by natural order of the name.
func SortFiles(files []MigrationFile) {
	sort.SliceStable(files, func(i, j int) bool {
		if files[i].Date != files[j].Date {
			return files[i].Date < files[j].Date
		}
		return naturalCompare(files[i].Filename, files[j].Filename) < 0
	})
}
