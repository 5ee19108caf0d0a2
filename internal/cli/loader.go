package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue/token"

	"github.com/roach88/cae/internal/compiler"
	"github.com/roach88/cae/internal/sim"
	"github.com/roach88/cae/internal/store"
)

// LoadError represents an error that occurred while loading a world.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadWorldFile compiles a world from a .cue file or a directory holding
// one CUE instance. It does not run the validation pass.
func LoadWorldFile(path string) (*sim.WorldSpec, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("world not found: %s", path)}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing world: %v", err)}
	}

	if info.IsDir() {
		cueFiles, err := FindCUEFiles(path)
		if err != nil {
			return nil, &LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}
		}
		if len(cueFiles) == 0 {
			return nil, &LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", path)}
		}
	} else if filepath.Ext(path) != ".cue" {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("not a CUE file: %s", path)}
	}

	spec, err := compiler.Load(path)
	if err != nil {
		return nil, convertCompileError(err, path)
	}
	return spec, nil
}

// FindCUEFiles walks the directory and returns all .cue file paths.
func FindCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// convertCompileError converts a compiler error to a LoadError with position info.
func convertCompileError(err error, context string) *LoadError {
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		return &LoadError{
			Code:    MapFieldToErrorCode(compileErr.Field),
			Message: compileErr.Message,
			Pos:     compileErr.Pos,
		}
	}
	return &LoadError{
		Code:    ErrCodeLoadFailed,
		Message: fmt.Sprintf("%s: %v", context, err),
	}
}

// openStore opens an existing archive. Unlike store.Open it never creates
// the file.
func openStore(path string) (*store.Store, error) {
	if path == "" {
		return nil, NewExitError(ExitCommandError, "--db is required (or set CAE_DB)")
	}
	if _, err := os.Stat(path); err != nil {
		return nil, WrapExitError(ExitCommandError, "database not found", err)
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return st, nil
}

// Error code constants - unified across all CLI commands.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No CUE files found
	ErrCodeLoadFailed  = "E004" // CUE load failed
	ErrCodeNotFound    = "E005" // Path, run, turn or node not found
	ErrCodeBuildFailed = "E006" // CUE build failed
	ErrCodeWriteFailed = "E007" // Archive or sink write error

	// World compilation errors
	ErrCodeNoWorld      = "E101" // No top-level world struct
	ErrCodeMissingField = "E102" // Required world field missing
	ErrCodeBadPosition  = "E103" // Position is not [x, y]

	// Query errors
	ErrCodeBadFilter = "E301" // Malformed --kind or --where
)

// MapFieldToErrorCode maps a compiler error field to an error code.
func MapFieldToErrorCode(field string) string {
	switch field {
	case compiler.WorldPath:
		return ErrCodeNoWorld
	case "cue":
		return ErrCodeBuildFailed
	case "pos":
		return ErrCodeBadPosition
	case "name", "width", "height", "potion_heal", "hp", "attack", "damage":
		return ErrCodeMissingField
	default:
		return ErrCodeGeneric
	}
}
