package migrator

import (
	"context"
	"errors"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func succeed(ctx context.Context, env *Env) (Result, error) {
	return Result{Success: true}, nil
}

type countingLoader struct {
	defs  TableLoader
	calls map[string]int
	fail  map[string]bool
}

func (l *countingLoader) Load(ctx context.Context, file MigrationFile) (*Definition, error) {
	l.calls[file.Filename]++
	if l.fail[file.Filename] {
		return nil, errors.New("broken")
	}
	return l.defs.Load(ctx, file)
}

func mustParse(t *testing.T, name string) MigrationFile {
	t.Helper()
	f, err := ParseFilename(name)
	require.NoError(t, err)
	return f
}

func TestRegistryLoadsOnce(t *testing.T) {
	ctx := context.Background()
	file := mustParse(t, "v1_0_0-1-a.go")
	loader := &countingLoader{
		defs:  TableLoader{"v1_0_0-1-a": {Info: Info{Type: TypeConfig, Target: TargetBot}, Up: succeed}},
		calls: map[string]int{},
		fail:  map[string]bool{},
	}
	r := NewRegistry(NewFSSource(fstest.MapFS{"m/v1_0_0-1-a.go": {}}, "m"), loader)

	assert.False(t, r.Loaded())
	_, found := r.Get(file.Filename)
	assert.False(t, found)

	first, err := r.Load(ctx, file)
	require.NoError(t, err)
	second, err := r.Load(ctx, file)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, loader.calls[file.Filename])
	assert.True(t, r.Loaded())

	cached, found := r.Get(file.Filename)
	assert.True(t, found)
	assert.Same(t, first, cached)

	all, err := r.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestRegistryLoadFailureIsNotCached(t *testing.T) {
	ctx := context.Background()
	file := mustParse(t, "v1_0_0-1-a.go")
	loader := &countingLoader{
		defs:  TableLoader{"v1_0_0-1-a.go": {Info: Info{Type: TypeConfig, Target: TargetBot}, Up: succeed}},
		calls: map[string]int{},
		fail:  map[string]bool{file.Filename: true},
	}
	r := NewRegistry(NewFSSource(fstest.MapFS{}, "."), loader)

	_, err := r.Load(ctx, file)
	assert.ErrorIs(t, err, ErrLoad)
	var le *LoadError
	assert.ErrorAs(t, err, &le)
	assert.False(t, r.Loaded())

	loader.fail[file.Filename] = false
	_, err = r.Load(ctx, file)
	require.NoError(t, err)
	assert.Equal(t, 2, loader.calls[file.Filename])
}

func TestTableLoaderValidates(t *testing.T) {
	ctx := context.Background()
	table := TableLoader{
		"v1_0_0-1-noup.go":      {Info: Info{Type: TypeConfig, Target: TargetBot}},
		"v1_0_0-2-badtype.go":   {Info: Info{Type: "sql", Target: TargetBot}, Up: succeed},
		"v1_0_0-4-notarget.go":  {Info: Info{Type: TypeContent}, Up: succeed},
		"v1_0_0-5-badtarget.go": {Info: Info{Type: TypeContent, Target: "bots"}, Up: succeed},
	}

	_, err := table.Load(ctx, mustParse(t, "v1_0_0-1-noup.go"))
	assert.Error(t, err)
	_, err = table.Load(ctx, mustParse(t, "v1_0_0-2-badtype.go"))
	assert.Error(t, err)
	_, err = table.Load(ctx, mustParse(t, "v1_0_0-3-missing.go"))
	assert.Error(t, err)
	_, err = table.Load(ctx, mustParse(t, "v1_0_0-4-notarget.go"))
	assert.ErrorContains(t, err, "no target")
	_, err = table.Load(ctx, mustParse(t, "v1_0_0-5-badtarget.go"))
	assert.ErrorContains(t, err, "unknown migration target")
}
