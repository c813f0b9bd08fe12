// Package mergeconfig reads the merge algorithm and conflict-marker style
// out of an ini-style [merge] config section, the way go-git.v4's own
// config package layers a repository config file over discovered global
// defaults. Out of scope for package merge itself (spec §1): this package
// only decides what to configure merge.Merger/gitmodel.ContentAlgorithm
// with before construction.
package mergeconfig

import (
	"os"
	"path/filepath"

	"github.com/mitchellh/go-homedir"
	"github.com/src-d/gcfg"
	"gopkg.in/warnings.v0"

	"github.com/src-d/go-merge3/diff3"
)

// Algorithm names the pluggable merge kernel. Only "diff3" exists today;
// the field exists so a config file naming an unknown algorithm produces a
// clear error rather than silently falling back.
type Algorithm string

const (
	AlgorithmDiff3 Algorithm = "diff3"
)

// Config is the [merge] section's parsed contents.
type Config struct {
	Algorithm     Algorithm
	ConflictStyle diff3.ConflictStyle
}

// Default matches git's own out-of-the-box behaviour: the diff3 algorithm,
// two-way conflict markers.
func Default() *Config {
	return &Config{Algorithm: AlgorithmDiff3, ConflictStyle: diff3.StyleMerge}
}

// iniFile mirrors the ini structure gcfg.ReadInto expects: exported struct
// fields name the section and keys it will unmarshal.
type iniFile struct {
	Merge struct {
		Algorithm     string
		Conflictstyle string
	}
}

// Load reads path (typically "<repo>/.git/config"), falling back to
// Default for any field the file doesn't set. A missing file is not an
// error -- callers pass the path they found by convention, not one they've
// already verified exists.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	var raw iniFile
	if err := gcfg.ReadFileInto(&raw, path); err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		if fatal := gcfg.FatalOnly(err); fatal != nil {
			return nil, fatal
		}
	}

	if err := cfg.applyRaw(raw); err != nil {
		return nil, err
	}
	return cfg, nil
}

// UnknownKeys extracts the non-fatal "unknown key" diagnostics gcfg
// collects while parsing an otherwise-valid file, for callers that want to
// surface them without failing the load.
func UnknownKeys(err error) []string {
	list, ok := err.(*warnings.List)
	if !ok {
		return nil
	}
	msgs := make([]string, 0, len(list.Errors))
	for _, e := range list.Errors {
		msgs = append(msgs, e.Error())
	}
	return msgs
}

// LoadGlobal merges the user's global ~/.gitconfig [merge] section under
// base, giving repository-local settings precedence the way git itself
// layers system < global < local config.
func LoadGlobal(base *Config) (*Config, error) {
	home, err := homedir.Dir()
	if err != nil {
		return base, nil
	}

	var raw iniFile
	globalPath := filepath.Join(home, ".gitconfig")
	if err := gcfg.ReadFileInto(&raw, globalPath); err != nil {
		if os.IsNotExist(err) {
			return base, nil
		}
		if fatal := gcfg.FatalOnly(err); fatal != nil {
			return nil, fatal
		}
	}

	merged := *base
	if err := merged.applyRaw(raw); err != nil {
		return nil, err
	}
	return &merged, nil
}

func (c *Config) applyRaw(raw iniFile) error {
	if raw.Merge.Algorithm != "" {
		switch Algorithm(raw.Merge.Algorithm) {
		case AlgorithmDiff3:
			c.Algorithm = AlgorithmDiff3
		default:
			return &UnknownAlgorithmError{Name: raw.Merge.Algorithm}
		}
	}
	if raw.Merge.Conflictstyle != "" {
		switch raw.Merge.Conflictstyle {
		case "merge":
			c.ConflictStyle = diff3.StyleMerge
		case "diff3":
			c.ConflictStyle = diff3.StyleDiff3
		default:
			return &UnknownConflictStyleError{Name: raw.Merge.Conflictstyle}
		}
	}
	return nil
}

// UnknownAlgorithmError reports a merge.algorithm value this build doesn't
// implement.
type UnknownAlgorithmError struct{ Name string }

func (e *UnknownAlgorithmError) Error() string {
	return "mergeconfig: unknown merge.algorithm " + e.Name
}

// UnknownConflictStyleError reports a merge.conflictstyle value that isn't
// "merge" or "diff3".
type UnknownConflictStyleError struct{ Name string }

func (e *UnknownConflictStyleError) Error() string {
	return "mergeconfig: unknown merge.conflictstyle " + e.Name
}
