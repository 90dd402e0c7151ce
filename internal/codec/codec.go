// Package codec serializes values to their textual form.
package codec

import (
	json "github.com/goccy/go-json"
)

type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

type JSONCodec struct{}

func (JSONCodec) Marshal(v any) ([]byte, error)   { return json.Marshal(v) }
func (JSONCodec) Unmarshal(b []byte, v any) error { return json.Unmarshal(b, v) }

// JSON is the codec used for forced string values and event payloads.
var JSON Codec = JSONCodec{}

// String returns the serialized form of v as a string.
func String(c Codec, v any) (string, error) {
	b, err := c.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
