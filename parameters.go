package migbatch

import (
	"crypto/md5"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/karlseguin/typed"
)

// well known parameter keys
const (
	ParamMigrationVersion = "migrationVersion"
	ParamMapping          = "mapping"
)

// Parameters are the JSON parameters of a job instance or a job run
type Parameters struct {
	typed.Typed
}

// NewParameters create Parameters from a raw map, the map is copied
func NewParameters(raw map[string]interface{}) Parameters {
	p := Parameters{Typed: typed.Typed{}}
	for k, v := range raw {
		p.Typed[k] = v
	}
	return p
}

// ParseParameters parse a JSON object, an empty string gives empty Parameters
func ParseParameters(str string) (Parameters, error) {
	p := Parameters{Typed: typed.Typed{}}
	if str == "" {
		return p, nil
	}
	if err := p.FromString(str); err != nil {
		return p, err
	}
	return p, nil
}

func (p *Parameters) Set(k string, v any) *Parameters {
	if p.Typed == nil {
		p.Typed = typed.Typed{}
	}
	p.Typed[k] = v
	return p
}

// Lookup returns the textual form of a scalar parameter. Missing keys and explicit nulls are reported as absent.
func (p Parameters) Lookup(k string) (string, bool) {
	v, ok := p.Typed[k]
	if !ok || v == nil {
		return "", false
	}
	return looseString(v)
}

// MigrationVersion returns the required migrationVersion parameter
func (p Parameters) MigrationVersion() (string, bool) {
	return p.Lookup(ParamMigrationVersion)
}

// Matches compares parameter k with value using loose equality: numbers and strings are compared by their text.
func (p Parameters) Matches(k string, value string) bool {
	v, ok := p.Lookup(k)
	return ok && v == value
}

func (p Parameters) Clone() Parameters {
	return NewParameters(p.Typed)
}

func (p Parameters) ToString() string {
	bs, err := json.Marshal(p)
	if err != nil {
		panic(err)
	}
	return string(bs)
}

func (p *Parameters) FromString(str string) error {
	return json.Unmarshal([]byte(str), p)
}

func (p *Parameters) UnmarshalJSON(bytes []byte) error {
	return json.Unmarshal(bytes, &p.Typed)
}

func (p Parameters) MarshalJSON() ([]byte, error) {
	if p.Typed == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(p.Typed)
}

func (p Parameters) Footprint() string {
	bytes, err := json.Marshal(p)
	if err != nil {
		panic(err)
	}
	b := md5.Sum(bytes)
	return fmt.Sprintf("%x", b)
}

func looseString(v interface{}) (string, bool) {
	switch val := v.(type) {
	case string:
		return val, true
	case json.Number:
		return val.String(), true
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), true
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32), true
	case int:
		return strconv.Itoa(val), true
	case int64:
		return strconv.FormatInt(val, 10), true
	case int32:
		return strconv.FormatInt(int64(val), 10), true
	case uint64:
		return strconv.FormatUint(val, 10), true
	case bool:
		return strconv.FormatBool(val), true
	}
	return "", false
}
