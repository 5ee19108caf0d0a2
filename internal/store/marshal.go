package store

import (
	"fmt"

	"github.com/roach88/cae/internal/ir"
)

// marshalFields converts label fields to canonical JSON TEXT.
func marshalFields(fields ir.IRObject) (string, error) {
	if fields == nil {
		fields = ir.IRObject{}
	}
	data, err := ir.MarshalCanonical(fields)
	if err != nil {
		return "", fmt.Errorf("marshal fields: %w", err)
	}
	return string(data), nil
}

// unmarshalFields parses canonical JSON TEXT back to an IRObject.
func unmarshalFields(data string) (ir.IRObject, error) {
	if data == "" || data == "{}" {
		return ir.IRObject{}, nil
	}
	obj, err := ir.UnmarshalIRObject([]byte(data))
	if err != nil {
		return nil, fmt.Errorf("unmarshal fields: %w", err)
	}
	return obj, nil
}
