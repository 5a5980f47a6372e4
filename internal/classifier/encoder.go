package classifier

import (
	"encoding/json"
	"fmt"
	"sort"
)

// UnknownCategory is the code reserved for values the encoder was not fitted on
const UnknownCategory = -1

// ExtensionEncoder is the encoders.json key of the file extension encoder
const ExtensionEncoder = "extension"

// CategoryEncoder maps categorical values to dense integer codes. Codes are
// positions in the sorted class list, as assigned at training time.
type CategoryEncoder struct {
	classes []string
	index   map[string]int
}

// FitCategoryEncoder fits an encoder on the distinct values in values
func FitCategoryEncoder(values []string) *CategoryEncoder {
	seen := make(map[string]struct{}, len(values))
	classes := make([]string, 0)
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		classes = append(classes, v)
	}
	sort.Strings(classes)

	enc, _ := NewCategoryEncoder(classes)
	return enc
}

// NewCategoryEncoder restores an encoder from its fitted classes
func NewCategoryEncoder(classes []string) (*CategoryEncoder, error) {
	index := make(map[string]int, len(classes))
	for i, c := range classes {
		if _, dup := index[c]; dup {
			return nil, fmt.Errorf("duplicate class %q", c)
		}
		index[c] = i
	}

	return &CategoryEncoder{
		classes: append([]string(nil), classes...),
		index:   index,
	}, nil
}

// Encode returns the code of value, or UnknownCategory
func (e *CategoryEncoder) Encode(value string) int {
	if e == nil {
		return UnknownCategory
	}
	if code, ok := e.index[value]; ok {
		return code
	}
	return UnknownCategory
}

// Classes returns a copy of the fitted classes
func (e *CategoryEncoder) Classes() []string {
	if e == nil {
		return nil
	}
	return append([]string(nil), e.classes...)
}

type encoderJSON struct {
	Classes []string `json:"classes"`
}

// MarshalJSON implements json.Marshaler
func (e *CategoryEncoder) MarshalJSON() ([]byte, error) {
	return json.Marshal(encoderJSON{Classes: e.Classes()})
}

// UnmarshalJSON implements json.Unmarshaler
func (e *CategoryEncoder) UnmarshalJSON(data []byte) error {
	var raw encoderJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	restored, err := NewCategoryEncoder(raw.Classes)
	if err != nil {
		return err
	}
	*e = *restored
	return nil
}
