package tracksettings

import (
	"fmt"

	"github.com/banshee-data/threshold.report/internal/adaptive"
	"github.com/banshee-data/threshold.report/internal/fsutil"
)

// maxFileSize bounds settings files; real rules are a few hundred bytes.
const maxFileSize = 64 * 1024

// RuleInterpreter converts file contents into a rule.
type RuleInterpreter interface {
	TrackingRule(contents string) (adaptive.TrackingRule, error)
}

// Reader loads rules from files.
type Reader struct {
	FS          fsutil.FileSystem
	Interpreter RuleInterpreter
}

// NewReader returns a Reader over the OS filesystem.
func NewReader() *Reader {
	return &Reader{FS: fsutil.OS{}, Interpreter: Interpreter{}}
}

// Read reads and interprets the file at path.
func (r *Reader) Read(path string) (adaptive.TrackingRule, error) {
	info, err := r.FS.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat track settings: %w", err)
	}
	if info.Size() > maxFileSize {
		return nil, fmt.Errorf("track settings file too large: %d bytes (max %d)", info.Size(), maxFileSize)
	}
	data, err := r.FS.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read track settings: %w", err)
	}
	rule, err := r.Interpreter.TrackingRule(string(data))
	if err != nil {
		return nil, fmt.Errorf("failed to interpret %s: %w", path, err)
	}
	return rule, nil
}
