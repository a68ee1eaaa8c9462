package common

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"unicode/utf8"
)

var (
	ErrEncode = errors.New("sample encode failed")
	ErrDecode = errors.New("sample decode failed")
)

type Sample struct {
	Sender string  `json:"sender"`
	Value  float32 `json:"value"`
}

func NewSample(sender string, value float32) *Sample {
	return &Sample{Sender: sender, Value: value}
}

// Marshal fails for NaN and infinite values, JSON has no number for them.
func (s *Sample) Marshal() ([]byte, error) {
	if v := float64(s.Value); math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, fmt.Errorf("%w: unsupported value %v from %s", ErrEncode, s.Value, s.Sender)
	}
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncode, err)
	}
	return data, nil
}

func (s *Sample) String() string {
	return fmt.Sprintf("%s:%.2f", s.Sender, s.Value)
}

// DecodeSample requires exactly one JSON object holding both fields under
// their exact lowercase keys. Unknown keys are ignored.
func DecodeSample(data []byte) (*Sample, error) {
	var fields map[string]json.RawMessage
	dec := json.NewDecoder(bytes.NewReader(data))
	err := dec.Decode(&fields)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("%w: trailing data at offset %d", ErrDecode, dec.InputOffset())
	}

	var sender *string
	var value *float32
	if err := decodeField(fields, "sender", &sender); err != nil {
		return nil, err
	}
	if err := decodeField(fields, "value", &value); err != nil {
		return nil, err
	}
	if sender == nil {
		return nil, fmt.Errorf("%w: missing field sender", ErrDecode)
	}
	if value == nil {
		return nil, fmt.Errorf("%w: missing field value", ErrDecode)
	}
	return NewSample(*sender, *value), nil
}

func decodeField(fields map[string]json.RawMessage, key string, v any) error {
	raw, found := fields[key]
	if !found {
		return nil
	}
	err := json.Unmarshal(raw, v)
	if err != nil {
		return fmt.Errorf("%w: field %s: %v", ErrDecode, key, err)
	}
	return nil
}

// RawText renders data for logs, every maximal ill-formed byte sequence
// becomes one U+FFFD.
func RawText(data []byte) string {
	if utf8.Valid(data) {
		return string(data)
	}
	var b strings.Builder
	for len(data) > 0 {
		r, size := utf8.DecodeRune(data)
		if r != utf8.RuneError || size > 1 {
			b.Write(data[:size])
			data = data[size:]
			continue
		}
		b.WriteRune(utf8.RuneError)
		data = data[truncatedSequence(data):]
	}
	return b.String()
}

// truncatedSequence returns the length of the ill-formed prefix of data,
// which is the longest start of a valid sequence or a single byte.
func truncatedSequence(data []byte) int {
	lo, hi, n := byte(0x80), byte(0xbf), 0
	switch c := data[0]; {
	case c >= 0xc2 && c <= 0xdf:
		n = 2
	case c == 0xe0:
		lo, n = 0xa0, 3
	case c == 0xed:
		hi, n = 0x9f, 3
	case c >= 0xe1 && c <= 0xef:
		n = 3
	case c == 0xf0:
		lo, n = 0x90, 4
	case c >= 0xf1 && c <= 0xf3:
		n = 4
	case c == 0xf4:
		hi, n = 0x8f, 4
	default:
		return 1
	}
	i := 1
	for ; i < n && i < len(data); i++ {
		if data[i] < lo || data[i] > hi {
			break
		}
		lo, hi = 0x80, 0xbf
	}
	return i
}
