// Package testsupport adapts the teacher's text/JSON assertion
// helpers (srgg-blecli's internal/testutils) to this daemon's domain:
// byte-level wire-codec golden diffs and listdir JSON fixtures,
// instead of BLE device/advertisement comparisons.
package testsupport

import (
	"fmt"
	"strings"

	"github.com/hexops/gotextdiff"
	"github.com/hexops/gotextdiff/myers"
	"github.com/mcuadros/go-defaults"
)

// TestingT is the subset of *testing.T this package needs.
type TestingT interface {
	Errorf(format string, args ...interface{})
}

type TextAssertOptions struct {
	TrimSpace bool `default:"false"`
}

type TextAsserter struct {
	t       TestingT
	options TextAssertOptions
}

// NewTextAsserter builds an asserter with defaults populated via
// go-defaults, the same way the teacher's NewTextAsserter does.
func NewTextAsserter(t TestingT) *TextAsserter {
	opts := TextAssertOptions{}
	defaults.SetDefaults(&opts)
	return &TextAsserter{t: t, options: opts}
}

// Assert compares two hex dumps (or any line-oriented text) and
// reports a unified diff on mismatch. Used by internal/wire's codec
// tests to surface exactly which byte range diverged.
func (ta *TextAsserter) Assert(actual, expected string) {
	if ta.options.TrimSpace {
		actual = strings.TrimSpace(actual)
		expected = strings.TrimSpace(expected)
	}
	if actual == expected {
		return
	}
	edits := myers.ComputeEdits("", expected, actual)
	unified := gotextdiff.ToUnified("expected", "actual", expected, edits)
	ta.t.Errorf("wire assertion failed - unified diff:\n%s", fmt.Sprint(unified))
}
