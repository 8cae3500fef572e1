package utils

import (
	"bytes"
	"encoding/json"
)

type KV struct {
	Key   string
	Value any
}

// OrderedMap is a JSON object that keeps its members in insertion order.
// JSON-LD contexts are easier to diff against other servers that way.
type OrderedMap []KV

func (om OrderedMap) Get(key string) (any, bool) {
	for _, kv := range om {
		if kv.Key == key {
			return kv.Value, true
		}
	}
	return nil, false
}

func (om OrderedMap) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, kv := range om {
		if i > 0 {
			buf.WriteByte(',')
		}

		keyBytes, err := json.Marshal(kv.Key)
		if err != nil {
			return nil, err
		}
		buf.Write(keyBytes)
		buf.WriteByte(':')

		valueBytes, err := json.Marshal(kv.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(valueBytes)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
