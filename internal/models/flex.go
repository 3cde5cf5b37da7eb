package models

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// FlexString decodes a JSON string, number or bool into its text form. Null
// and objects decode to "".
type FlexString string

func (s *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		*s = ""
		return nil
	}
	switch data[0] {
	case '"':
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = FlexString(v)
	case 't', 'f':
		*s = FlexString(data)
	case 'n', '{', '[':
		*s = ""
	default:
		*s = FlexString(data)
	}
	return nil
}

// FlexFloat decodes a JSON number or numeric string. Anything else, NaN and
// infinities included, is 0.
type FlexFloat float64

func (f *FlexFloat) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	*f = 0
	if len(data) == 0 {
		return nil
	}
	text := string(data)
	if data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return nil
		}
		text = strings.TrimSpace(v)
	}
	if v, err := strconv.ParseFloat(text, 64); err == nil && !math.IsNaN(v) && !math.IsInf(v, 0) {
		*f = FlexFloat(v)
	}
	return nil
}

// Text formats the number without a trailing ".0" for whole values.
func (f FlexFloat) Text() string {
	return strconv.FormatFloat(float64(f), 'f', -1, 64)
}

// IsJSONNull reports whether raw is absent or an explicit null.
func IsJSONNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}
