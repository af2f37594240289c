package features

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// looseFloat decodes any JSON number or numeric string. Values that cannot be
// read as a finite number decode to nil instead of failing the document, so the
// extractor's defaults apply.
type looseFloat struct {
	value *float64
}

func (n *looseFloat) UnmarshalJSON(data []byte) error {
	n.value = parseLooseFloat(data)
	return nil
}

// looseInt is looseFloat rounded to the nearest integer.
type looseInt struct {
	value *int
}

func (n *looseInt) UnmarshalJSON(data []byte) error {
	n.value = nil
	if f := parseLooseFloat(data); f != nil && math.Abs(*f) <= math.MaxInt32 {
		v := int(math.Round(*f))
		n.value = &v
	}
	return nil
}

func parseLooseFloat(data []byte) *float64 {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil
	}
	var (
		f   float64
		err error
	)
	switch v := raw.(type) {
	case json.Number:
		f, err = v.Float64()
	case string:
		f, err = strconv.ParseFloat(strings.TrimSpace(v), 64)
	default:
		return nil
	}
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}
