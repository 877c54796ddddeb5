package preflight

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"

	"ciderpress/internal/config"
	"ciderpress/internal/deps"
)

// SourceStatus classifies the migration source root before a batch starts.
type SourceStatus int

const (
	// SourceValid means the root is readable and holds at least one recording.
	SourceValid SourceStatus = iota
	// SourcePermissionDenied means the root exists but cannot be read.
	SourcePermissionDenied
	// SourceNotFound means the root does not exist.
	SourceNotFound
	// SourceNoIndexFound means recordings exist but the metadata index is
	// missing; migration proceeds without recording dates.
	SourceNoIndexFound
	// SourceNoRecordings means the root is readable but holds no audio files.
	SourceNoRecordings
)

// String renders the status for logs and CLI output.
func (s SourceStatus) String() string {
	switch s {
	case SourceValid:
		return "valid"
	case SourcePermissionDenied:
		return "permission denied"
	case SourceNotFound:
		return "not found"
	case SourceNoIndexFound:
		return "no metadata index"
	case SourceNoRecordings:
		return "no recordings"
	default:
		return "unknown"
	}
}

// Blocking reports whether the status prevents a migration run. A missing
// index is informational only.
func (s SourceStatus) Blocking() bool {
	switch s {
	case SourceValid, SourceNoIndexFound:
		return false
	default:
		return true
	}
}

// InspectSourceRoot classifies the configured source tree. Permission
// problems are distinguished from absence so the user gets an actionable
// message instead of a generic failure.
func InspectSourceRoot(cfg *config.Config) SourceStatus {
	root := cfg.Paths.SourceRoot

	info, err := os.Stat(root)
	if err != nil {
		if os.IsNotExist(err) {
			return SourceNotFound
		}
		if os.IsPermission(err) {
			return SourcePermissionDenied
		}
		return SourceNotFound
	}
	if !info.IsDir() {
		return SourceNotFound
	}
	if err := unix.Access(root, unix.R_OK|unix.X_OK); err != nil {
		return SourcePermissionDenied
	}

	if !hasAudioFiles(root, cfg.Migration.AudioExtensions) {
		return SourceNoRecordings
	}

	if _, err := os.Stat(cfg.IndexPath()); err != nil {
		return SourceNoIndexFound
	}
	return SourceValid
}

func hasAudioFiles(root string, extensions []string) bool {
	found := false
	_ = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
		for _, allowed := range extensions {
			if ext == allowed {
				found = true
				return filepath.SkipAll
			}
		}
		return nil
	})
	return found
}

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config.
func RunAll(cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	status := InspectSourceRoot(cfg)
	results = append(results, Result{
		Name:   "Source root",
		Passed: !status.Blocking(),
		Detail: fmt.Sprintf("%s (%s)", cfg.Paths.SourceRoot, status),
	})

	results = append(results, CheckDirectoryAccess("Managed storage", cfg.Paths.HomeDir))

	for _, dep := range deps.CheckBinaries(deps.Requirements(cfg)) {
		results = append(results, Result{
			Name:   dep.Name,
			Passed: dep.Available || dep.Optional,
			Detail: depDetail(dep),
		})
	}

	return results
}

func depDetail(dep deps.Status) string {
	if dep.Available {
		return dep.Command
	}
	return dep.Detail
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}
