// Package feed ingests the remote hand-action feed: payload decoding, row
// normalization, and periodic polling.
package feed

import (
	"encoding/json"
	"fmt"
)

// Record is one raw feed row in either accepted shape: an object with named
// fields, or the legacy positional array. Exactly one of the two is set.
type Record struct {
	Object map[string]any
	Legacy []any
}

// Payload is the decoded feed response.
type Payload struct {
	OK      bool
	Records []Record
}

// Decode parses a feed body. Both the current wrapper object
// {"ok":true,"rows":[...]} and a legacy bare row array are accepted.
func Decode(data []byte) (Payload, error) {
	var wrapper struct {
		OK   *bool             `json:"ok"`
		Rows []json.RawMessage `json:"rows"`
	}
	if err := json.Unmarshal(data, &wrapper); err == nil && wrapper.OK != nil {
		records, err := decodeRecords(wrapper.Rows)
		if err != nil {
			return Payload{}, err
		}
		return Payload{OK: *wrapper.OK, Records: records}, nil
	}

	var bare []json.RawMessage
	if err := json.Unmarshal(data, &bare); err != nil {
		return Payload{}, fmt.Errorf("decode payload: %w", err)
	}
	records, err := decodeRecords(bare)
	if err != nil {
		return Payload{}, err
	}
	return Payload{OK: true, Records: records}, nil
}

func decodeRecords(raws []json.RawMessage) ([]Record, error) {
	records := make([]Record, 0, len(raws))
	for i, raw := range raws {
		var obj map[string]any
		if err := json.Unmarshal(raw, &obj); err == nil {
			records = append(records, Record{Object: obj})
			continue
		}
		var arr []any
		if err := json.Unmarshal(raw, &arr); err == nil {
			records = append(records, Record{Legacy: arr})
			continue
		}
		return nil, fmt.Errorf("decode row %d: unsupported shape", i)
	}
	return records, nil
}
