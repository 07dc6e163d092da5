package util

import (
	"bytes"
	"encoding/json"
)

// JsonString encode v as JSON without escaping HTML characters, so that parameters passed on a command line stay readable
func JsonString(v interface{}) (string, error) {
	buf := &bytes.Buffer{}
	encoder := json.NewEncoder(buf)
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(v); err != nil {
		return "", err
	}
	return string(bytes.TrimRight(buf.Bytes(), "\n")), nil
}

// ParseJson decode str into v
func ParseJson(str string, v interface{}) error {
	return json.Unmarshal([]byte(str), v)
}
