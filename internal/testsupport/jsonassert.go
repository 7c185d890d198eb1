package testsupport

import (
	"encoding/json"
	"fmt"

	"github.com/mcuadros/go-defaults"
	"github.com/yudai/gojsondiff"
	"github.com/yudai/gojsondiff/formatter"
)

func MustJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(data)
}

type JSONAssertOptions struct {
	IgnoreExtraKeys  bool     `default:"true"`
	IgnoredFields    []string `default:""`
	IgnoreArrayOrder bool     `default:"false"`
}

type JSONOption func(*JSONAssertOptions)

func WithIgnoreExtraKeys(ignore bool) JSONOption {
	return func(opts *JSONAssertOptions) { opts.IgnoreExtraKeys = ignore }
}

func WithIgnoredFields(fields ...string) JSONOption {
	return func(opts *JSONAssertOptions) { opts.IgnoredFields = fields }
}

func WithIgnoreArrayOrder(ignore bool) JSONOption {
	return func(opts *JSONAssertOptions) { opts.IgnoreArrayOrder = ignore }
}

// JSONAsserter compares listdir reply fixtures (and any other
// structured reply marshaled to JSON for golden testing) the way the
// teacher's JSONAsserter compares BLE device snapshots.
type JSONAsserter struct {
	t       TestingT
	options JSONAssertOptions
}

func NewJSONAsserter(t TestingT) *JSONAsserter {
	opts := JSONAssertOptions{}
	defaults.SetDefaults(&opts)
	return &JSONAsserter{t: t, options: opts}
}

func (ja *JSONAsserter) WithOptions(opts ...JSONOption) *JSONAsserter {
	for _, opt := range opts {
		opt(&ja.options)
	}
	return ja
}

// Assert compares actualJSON against expectedJSON, e.g. a
// ListDirEntry slice marshaled from a listdir reply against a golden
// fixture recorded from a real directory listing.
func (ja *JSONAsserter) Assert(actualJSON, expectedJSON string) {
	diff := ja.diff(actualJSON, expectedJSON)
	if diff != "" {
		ja.t.Errorf("listdir JSON assertion failed:\n%s", diff)
	}
}

func (ja *JSONAsserter) diff(actualJSON, expectedJSON string) string {
	var expected, actual interface{}
	if err := json.Unmarshal([]byte(expectedJSON), &expected); err != nil {
		return fmt.Sprintf("invalid expected JSON: %v", err)
	}
	if err := json.Unmarshal([]byte(actualJSON), &actual); err != nil {
		return fmt.Sprintf("invalid actual JSON: %v", err)
	}

	if isArray(expected) && isArray(actual) {
		expected = map[string]interface{}{"array": expected}
		actual = map[string]interface{}{"array": actual}
	}

	if len(ja.options.IgnoredFields) > 0 {
		removeIgnoredFields(expected, actual, ja.options.IgnoredFields)
	}
	if ja.options.IgnoreArrayOrder {
		sortArrays(expected)
		sortArrays(actual)
	}
	if ja.options.IgnoreExtraKeys {
		pruneExtraKeys(actual, expected)
	}

	expectedBytes, _ := json.Marshal(expected)
	actualBytes, _ := json.Marshal(actual)

	differ := gojsondiff.New()
	diff, err := differ.Compare(expectedBytes, actualBytes)
	if err != nil {
		return fmt.Sprintf("JSON comparison failed: %v", err)
	}
	if !diff.Modified() {
		return ""
	}

	config := formatter.AsciiFormatterConfig{ShowArrayIndex: true, Coloring: false}
	f := formatter.NewAsciiFormatter(expected, config)
	diffString, _ := f.Format(diff)
	return diffString
}

func isArray(v interface{}) bool {
	_, ok := v.([]interface{})
	return ok
}

func pruneExtraKeys(actual, expected interface{}) {
	switch exp := expected.(type) {
	case map[string]interface{}:
		act, ok := actual.(map[string]interface{})
		if !ok {
			return
		}
		for k := range act {
			if _, exists := exp[k]; !exists {
				delete(act, k)
			}
		}
		for k := range exp {
			pruneExtraKeys(act[k], exp[k])
		}
	case []interface{}:
		act, ok := actual.([]interface{})
		if !ok {
			return
		}
		for i := range exp {
			if i < len(act) {
				pruneExtraKeys(act[i], exp[i])
			}
		}
	}
}

func removeIgnoredFields(expected, actual interface{}, ignoredFields []string) {
	switch exp := expected.(type) {
	case map[string]interface{}:
		act, ok := actual.(map[string]interface{})
		if !ok {
			return
		}
		for _, field := range ignoredFields {
			delete(exp, field)
			delete(act, field)
		}
		for k := range exp {
			if actVal, exists := act[k]; exists {
				removeIgnoredFields(exp[k], actVal, ignoredFields)
			}
		}
	case []interface{}:
		act, ok := actual.([]interface{})
		if !ok {
			return
		}
		for i := range exp {
			if i < len(act) {
				removeIgnoredFields(exp[i], act[i], ignoredFields)
			}
		}
	}
}

// sortArrays sorts array-of-object fields by their JSON representation
// so that listdir replies (whose entry order is directory-iteration
// order, not guaranteed stable) can be compared order-independently.
func sortArrays(v interface{}) {
	switch val := v.(type) {
	case map[string]interface{}:
		for k, child := range val {
			if arr, ok := child.([]interface{}); ok {
				sortBySerialization(arr)
			} else {
				sortArrays(child)
			}
			_ = k
		}
	case []interface{}:
		sortBySerialization(val)
		for _, child := range val {
			sortArrays(child)
		}
	}
}

func sortBySerialization(arr []interface{}) {
	keys := make([]string, len(arr))
	for i, v := range arr {
		b, _ := json.Marshal(v)
		keys[i] = string(b)
	}
	for i := 1; i < len(arr); i++ {
		for j := i; j > 0 && keys[j-1] > keys[j]; j-- {
			keys[j-1], keys[j] = keys[j], keys[j-1]
			arr[j-1], arr[j] = arr[j], arr[j-1]
		}
	}
}
