package model

import (
	"bytes"
	"encoding/json"

	"github.com/rotisserie/eris"
)

// Field is a single key/value pair of a Document.
type Field struct {
	Key   string
	Value any
}

// Document is a JSON-like patient record. Field order is preserved so that
// frames built from documents keep the column order of the source data.
type Document struct {
	Fields []Field
}

// Get returns the value stored under key.
func (d Document) Get(key string) (any, bool) {
	for _, f := range d.Fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return nil, false
}

// Set replaces the value under key, appending the key if it is new.
func (d *Document) Set(key string, value any) {
	for i := range d.Fields {
		if d.Fields[i].Key == key {
			d.Fields[i].Value = value
			return
		}
	}
	d.Fields = append(d.Fields, Field{Key: key, Value: value})
}

// Delete removes key from the document.
func (d *Document) Delete(key string) {
	out := d.Fields[:0]
	for _, f := range d.Fields {
		if f.Key != key {
			out = append(out, f)
		}
	}
	d.Fields = out
}

// Keys returns the field names in order.
func (d Document) Keys() []string {
	keys := make([]string, len(d.Fields))
	for i, f := range d.Fields {
		keys[i] = f.Key
	}
	return keys
}

// MarshalJSON encodes the document as a JSON object in field order.
func (d Document) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range d.Fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.Key)
		if err != nil {
			return nil, eris.Wrapf(err, "document: marshal key %q", f.Key)
		}
		val, err := json.Marshal(f.Value)
		if err != nil {
			return nil, eris.Wrapf(err, "document: marshal value of %q", f.Key)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object, keeping key order. Numbers are kept
// as json.Number.
func (d *Document) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return eris.Wrap(err, "document: read object start")
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return eris.Errorf("document: expected object, got %v", tok)
	}

	d.Fields = d.Fields[:0]
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return eris.Wrap(err, "document: read key")
		}
		key, ok := tok.(string)
		if !ok {
			return eris.Errorf("document: expected string key, got %v", tok)
		}
		var value any
		if err := dec.Decode(&value); err != nil {
			return eris.Wrapf(err, "document: decode value of %q", key)
		}
		d.Fields = append(d.Fields, Field{Key: key, Value: value})
	}
	if _, err := dec.Token(); err != nil {
		return eris.Wrap(err, "document: read object end")
	}
	return nil
}
