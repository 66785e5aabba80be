package serializer

import (
	jsoniter "github.com/json-iterator/go"
)

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

// NewJSON creates a JSON Serializer. Output is compatible with encoding/json,
// so `json` struct tags apply.
func NewJSON(registry *Registry) *Codec {
	return New("json", registry, jsonAPI.Marshal, jsonAPI.Unmarshal)
}
