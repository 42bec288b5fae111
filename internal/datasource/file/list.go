package file

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"

	"songplays/internal/datasource"
)

// DefaultPattern matches the song and log data files.
const DefaultPattern = "*.json"

// List walks root recursively and returns the regular files whose base name
// matches pattern (DefaultPattern when empty), sorted lexically so that runs
// are reproducible. Directories and files starting with '.' are skipped.
func List(ctx context.Context, root, pattern string) ([]string, error) {
	if pattern == "" {
		pattern = DefaultPattern
	}
	if _, err := filepath.Match(pattern, ""); err != nil {
		return nil, fmt.Errorf("list %s: bad pattern %q: %w", root, pattern, err)
	}

	var out []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		name := d.Name()
		if path != root && len(name) > 0 && name[0] == '.' {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if ok, _ := filepath.Match(pattern, name); ok {
			out = append(out, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", root, err)
	}
	sort.Strings(out)
	return out, nil
}

// Sources wraps each path in a Local source.
func Sources(paths []string) []datasource.Source {
	out := make([]datasource.Source, len(paths))
	for i, p := range paths {
		out[i] = NewLocal(p)
	}
	return out
}
