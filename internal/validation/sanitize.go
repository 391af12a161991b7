package validation

import (
	"html"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	policyOnce sync.Once
	policy     *bluemonday.Policy
)

// CleanText strips markup from free text that is stored and echoed back to
// the other party, such as terminal names and cancel reasons.
func CleanText(s string) string {
	policyOnce.Do(func() {
		policy = bluemonday.StrictPolicy()
	})
	return strings.TrimSpace(html.UnescapeString(policy.Sanitize(s)))
}
