package query

import (
	"encoding/json"
	"fmt"
)

// Select renders items (a slice of JSON-encodable values) as objects limited
// to the descriptor's projection. The id is always kept and the version field
// is always dropped.
func (d Descriptor) Select(items any) ([]map[string]any, error) {
	data, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("encoding items: %w", err)
	}
	var rows []map[string]any
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("decoding items: %w", err)
	}

	keep := map[string]bool{}
	for _, f := range d.Projection {
		keep[f] = true
	}

	out := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		delete(row, VersionField)
		if len(keep) > 0 {
			for k := range row {
				if k != "id" && !keep[k] {
					delete(row, k)
				}
			}
		}
		out = append(out, row)
	}
	return out, nil
}
