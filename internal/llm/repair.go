package llm

import (
	"encoding/json"
	"regexp"
	"strings"
)

// Backends return JSON wrapped in Markdown fences or with trailing commas
// often enough that parsing the payload verbatim is hopeless. The repair
// pipeline is an ordered list of named text transforms applied before the
// single parse attempt; each step is independently testable and its name is
// recorded when it changed the payload.

type repairStep struct {
	name  string
	apply func(string) string
}

var repairSteps = []repairStep{
	{"strip_code_fence", stripCodeFence},
	{"strip_trailing_commas", stripTrailingCommas},
}

var (
	fenceOpenRe     = regexp.MustCompile("^```[a-zA-Z]*[ \t]*\n?")
	fenceCloseRe    = regexp.MustCompile("\n?[ \t]*```$")
	trailingCommaRe = regexp.MustCompile(`,\s*([}\]])`)
)

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	s = fenceOpenRe.ReplaceAllString(s, "")
	s = fenceCloseRe.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

func stripTrailingCommas(s string) string {
	return trailingCommaRe.ReplaceAllString(s, "$1")
}

// repairPayload runs the repair pipeline and returns the repaired text plus
// the names of the steps that actually changed it.
func repairPayload(text string) (string, []string) {
	applied := []string{}
	for _, step := range repairSteps {
		repaired := step.apply(text)
		if repaired != text {
			applied = append(applied, step.name)
		}
		text = repaired
	}
	return text, applied
}

// decodeItems repairs and parses a backend payload into raw line items. On
// parse failure it returns a MalformedResponseError carrying the original
// payload; it never guesses partial content.
func decodeItems(text string) ([]RawItem, []string, error) {
	repaired, applied := repairPayload(text)

	var items []RawItem
	if err := json.Unmarshal([]byte(repaired), &items); err != nil {
		return nil, applied, &MalformedResponseError{Raw: text, Err: err}
	}
	return items, applied, nil
}
