package store

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/timeline/internal/ir"
)

// marshalDetail converts a detail object to canonical JSON TEXT.
func marshalDetail(detail ir.Object) (string, error) {
	if detail == nil {
		detail = ir.Object{}
	}
	data, err := ir.MarshalCanonical(detail)
	if err != nil {
		return "", fmt.Errorf("marshal detail: %w", err)
	}
	return string(data), nil
}

// marshalIDs converts a handle list to canonical JSON TEXT.
func marshalIDs(ids []string) (string, error) {
	data, err := ir.MarshalCanonical(ir.Strings(ids...))
	if err != nil {
		return "", fmt.Errorf("marshal ids: %w", err)
	}
	return string(data), nil
}

// unmarshalDetail parses stored detail JSON. Integers keep full precision.
func unmarshalDetail(data string) (ir.Object, error) {
	if data == "" || data == "{}" {
		return ir.Object{}, nil
	}
	var obj ir.Object
	if err := json.Unmarshal([]byte(data), &obj); err != nil {
		return nil, fmt.Errorf("unmarshal detail: %w", err)
	}
	return obj, nil
}

// unmarshalIDs parses a stored handle list. It never returns nil.
func unmarshalIDs(data string) ([]string, error) {
	ids := []string{}
	if data == "" {
		return ids, nil
	}
	if err := json.Unmarshal([]byte(data), &ids); err != nil {
		return nil, fmt.Errorf("unmarshal ids: %w", err)
	}
	return ids, nil
}
