package compiler

import (
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"

	"github.com/roach88/cae/internal/sim"
)

// Load loads a world from a .cue file or from a directory of CUE files
// forming one instance.
func Load(path string) (*sim.WorldSpec, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("load world: %w", err)
	}

	cfg := &load.Config{Dir: path}
	args := []string{"."}
	if !info.IsDir() {
		cfg.Dir = filepath.Dir(path)
		args = []string{filepath.Base(path)}
	}

	instances := load.Instances(args, cfg)
	if len(instances) == 0 {
		return nil, fmt.Errorf("load world %s: no CUE instances loaded", path)
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, fmt.Errorf("load world %s: %w", path, formatCUEError(inst.Err))
	}

	value := cuecontext.New().BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	return CompileWorld(value.LookupPath(cue.ParsePath(WorldPath)))
}
