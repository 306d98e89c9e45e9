// Package jsonx holds conversions between typed Go values and the dynamic
// JSON shapes that SDK request builders expect.
package jsonx

import "github.com/goccy/go-json"

// ToDynamicJSON round-trips val through JSON into a map[string]any. Request
// builders use it to splice generated schemas into SDK payloads that only
// accept dynamic documents.
func ToDynamicJSON(val any) (map[string]any, error) {
	b, err := json.Marshal(val)
	if err != nil {
		return nil, err
	}
	result := make(map[string]any)
	if err = json.Unmarshal(b, &result); err != nil {
		return nil, err
	}
	return result, nil
}
