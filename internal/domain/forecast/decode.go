package forecast

import (
	"bytes"
	"encoding/json"

	"rossmann/pkg/errors"
)

// DecodeRecords reads a JSON object or array of objects. Numbers are kept as
// json.Number so integer fields survive unchanged. An empty body, null or an
// empty object yields no records.
func DecodeRecords(body []byte) ([]Record, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, nil
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var payload any
	if err := dec.Decode(&payload); err != nil {
		return nil, errors.Wrapf(errors.ErrMalformedInput, "invalid JSON: %v", err)
	}
	if dec.More() {
		return nil, errors.Wrap(errors.ErrMalformedInput, "trailing data after JSON value")
	}

	switch v := payload.(type) {
	case nil:
		return nil, nil
	case map[string]any:
		if len(v) == 0 {
			return nil, nil
		}
		return []Record{v}, nil
	case []any:
		records := make([]Record, len(v))
		for i, item := range v {
			obj, ok := item.(map[string]any)
			if !ok {
				return nil, errors.Wrapf(errors.ErrMalformedInput, "element %d is not an object", i)
			}
			records[i] = obj
		}
		return records, nil
	default:
		return nil, errors.Wrapf(errors.ErrMalformedInput, "expected an object or an array, got %T", payload)
	}
}
