package loader

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/nathoo/parley/engine/state"
)

// Script file extensions.
const (
	extRive = ".rive"
	extLua  = ".lua"
)

// customDir is the per-installation override directory inside the system
// language path.
const customDir = "custom"

// Layers returns the language directories to load, in order: the system
// path, its custom/ subdirectory when present, then the extra paths.
func Layers(system string, extra []string) []string {
	dirs := []string{system}
	custom := filepath.Join(system, customDir)
	if fi, err := os.Stat(custom); err == nil && fi.IsDir() {
		dirs = append(dirs, custom)
	}
	return append(dirs, extra...)
}

// Load reads every script in dirs, compiles them into an Index and returns
// it. Files are parsed concurrently; their records are merged in directory
// order, then file order, before a single deterministic compile.
func Load(dirs []string, opts ...Option) (*state.Index, error) {
	o := buildOptions(opts)

	files, err := ScriptFiles(dirs)
	if err != nil {
		return nil, err
	}
	c, err := ReadCorpus(files)
	if err != nil {
		return nil, err
	}
	idx, err := Compile(c, opts...)
	if err != nil {
		return nil, err
	}

	o.log.Info("corpus loaded",
		zap.Strings("dirs", dirs),
		zap.Int("files", len(files)),
		zap.Int("topics", len(idx.Topics)),
		zap.Int("triggers", idx.Triggers),
		zap.Int("sets", idx.Concepts.Len()))
	return idx, nil
}

// ScriptFiles lists the .rive and .lua files in dirs, in load order.
func ScriptFiles(dirs []string) ([]string, error) {
	var files []string
	for _, dir := range dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, fmt.Errorf("reading language directory %s: %w", dir, err)
		}
		var names []string
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			switch filepath.Ext(e.Name()) {
			case extRive, extLua:
				names = append(names, e.Name())
			}
		}
		for _, n := range sortedScripts(names) {
			files = append(files, filepath.Join(dir, n))
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no %s or %s files found in %s", extRive, extLua, strings.Join(dirs, ", "))
	}
	return files, nil
}

// ReadCorpus parses files concurrently and merges the results in the
// order given.
func ReadCorpus(files []string) (*Corpus, error) {
	parsed := make([]*Corpus, len(files))

	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, path := range files {
		g.Go(func() error {
			c, err := parseFile(path)
			if err != nil {
				return err
			}
			parsed[i] = c
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := &Corpus{}
	for _, c := range parsed {
		merged.Merge(c)
	}
	return merged, nil
}

func parseFile(path string) (*Corpus, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	if filepath.Ext(path) == extLua {
		return ParseLua(path, f)
	}
	return ParseRive(path, f)
}

// sortedScripts returns script names with begin.* first and the rest
// sorted alphabetically.
func sortedScripts(files []string) []string {
	var begin []string
	var others []string
	for _, f := range files {
		if strings.TrimSuffix(f, filepath.Ext(f)) == "begin" {
			begin = append(begin, f)
		} else {
			others = append(others, f)
		}
	}
	sort.Strings(begin)
	sort.Strings(others)
	return append(begin, others...)
}
