package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/shopspring/decimal"
)

// prices and values are stored as JSON numbers, like every other client writes them
func init() {
	decimal.MarshalJSONWithoutQuotes = true
}

// Encode converts a value into normalized document fields
func Encode(v any) (Fields, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode fields: %w", err)
	}
	return decodeFields(data)
}

// Decode converts document fields into out
func Decode(fields Fields, out any) error {
	data, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("decode fields: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode fields: %w", err)
	}
	return nil
}

// Normalize returns a deep copy of fields in the canonical stored form.
// Numbers become json.Number and nested structs become maps.
func Normalize(fields Fields) (Fields, error) {
	if fields == nil {
		return Fields{}, nil
	}
	data, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("normalize fields: %w", err)
	}
	return decodeFields(data)
}

// Marshal serializes fields for a durable backend
func Marshal(fields Fields) ([]byte, error) {
	if fields == nil {
		fields = Fields{}
	}
	return json.Marshal(fields)
}

// Unmarshal parses fields written by Marshal
func Unmarshal(data []byte) (Fields, error) {
	return decodeFields(data)
}

func decodeFields(data []byte) (Fields, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var out Fields
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("decode fields: %w", err)
	}
	if out == nil {
		out = Fields{}
	}
	return out, nil
}

// OrderValue returns the numeric value of an ordering field
func OrderValue(fields Fields, field string) (float64, bool) {
	v, ok := fields[field]
	if !ok || v == nil {
		return 0, false
	}
	switch n := v.(type) {
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil && !math.IsNaN(f)
	}
	return 0, false
}

// SortDocuments orders docs ascending by orderField with ties broken by id.
// Documents without a numeric order value sort after all others.
func SortDocuments(docs []Document, orderField string) {
	sort.SliceStable(docs, func(i, j int) bool {
		return lessDocument(docs[i], docs[j], orderField)
	})
}

func lessDocument(a, b Document, orderField string) bool {
	av, aok := OrderValue(a.Fields, orderField)
	bv, bok := OrderValue(b.Fields, orderField)
	switch {
	case aok && !bok:
		return true
	case !aok && bok:
		return false
	case aok && bok && av != bv:
		return av < bv
	}
	return a.Ref.ID < b.Ref.ID
}

// CloneDocuments deep-copies docs so receivers cannot alias stored state
func CloneDocuments(docs []Document) []Document {
	out := make([]Document, len(docs))
	for i, d := range docs {
		fields, err := Normalize(d.Fields)
		if err != nil {
			fields = Fields{}
		}
		out[i] = Document{Ref: d.Ref, Fields: fields}
	}
	return out
}
