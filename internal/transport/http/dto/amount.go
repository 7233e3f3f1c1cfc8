package dto

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// FlexInt accepts a JSON number or a numeric string. Anything else decodes to
// zero so the orchestrator reports the field as invalid.
type FlexInt int64

func (n *FlexInt) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*n = 0
		return nil
	}

	if data[0] == '"' {
		var raw string
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		data = []byte(strings.TrimSpace(raw))
	}

	if v, err := strconv.ParseInt(string(data), 10, 64); err == nil {
		*n = FlexInt(v)
		return nil
	}
	if f, err := strconv.ParseFloat(string(data), 64); err == nil && f == float64(int64(f)) {
		*n = FlexInt(int64(f))
		return nil
	}

	*n = 0
	return nil
}

func (n FlexInt) Int64() int64 {
	return int64(n)
}
