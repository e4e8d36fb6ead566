package extract

import "strings"

// leadInPrefixes are conversational openers models put before an unfenced
// answer. Matched case-insensitively against the start of a line.
var leadInPrefixes = []string{
	"here is",
	"here's",
	"i'll ",
	"i will ",
	"i've ",
	"i have ",
	"let me ",
	"sure,",
	"sure!",
	"okay,",
	"okay!",
	"certainly",
	"absolutely",
	"of course",
	"now i ",
	"based on",
	"below is",
	"the modified",
	"the updated",
}

// signOffPrefixes are closing remarks appended after the answer.
var signOffPrefixes = []string{
	"let me know",
	"hope this helps",
	"is there anything",
	"would you like",
	"shall i ",
	"do you want",
	"if you'd like",
}

// looseSignOffPrefixes also open ordinary closing sentences, so they only
// count when the line ends in a question or exclamation mark.
var looseSignOffPrefixes = []string{
	"feel free to",
	"i can also",
	"if you need",
	"this version",
	"the changes",
}

// maxLeadInLines bounds how much of the top is ever dropped.
const maxLeadInLines = 3

// stripChatter removes lead-in lines from the top and sign-off lines from
// the bottom of an unfenced response. It returns the remaining text and
// the number of non-blank lines dropped.
func stripChatter(s string) (string, int) {
	lines := strings.Split(s, "\n")
	dropped := 0

	start, seen := 0, 0
	for start < len(lines) && seen < maxLeadInLines {
		line := strings.TrimSpace(lines[start])
		if line == "" {
			start++
			continue
		}
		if !hasAnyPrefix(line, leadInPrefixes) {
			break
		}
		start++
		seen++
		dropped++
	}

	// A sign-off line counts only when a blank line sets it off.
	end := len(lines)
	for i := end; i > start; i-- {
		line := strings.TrimSpace(lines[i-1])
		if line == "" {
			continue
		}
		if !isSignOff(line) {
			break
		}
		if i-1 > start && strings.TrimSpace(lines[i-2]) != "" {
			break
		}
		end = i - 1
		dropped++
	}
	if end < len(lines) {
		for end > start && strings.TrimSpace(lines[end-1]) == "" {
			end--
		}
	}

	if dropped == 0 {
		return s, 0
	}
	return strings.Join(lines[start:end], "\n"), dropped
}

func isSignOff(line string) bool {
	if hasAnyPrefix(line, signOffPrefixes) {
		return true
	}
	return hasAnyPrefix(line, looseSignOffPrefixes) &&
		(strings.HasSuffix(line, "?") || strings.HasSuffix(line, "!"))
}

func hasAnyPrefix(line string, prefixes []string) bool {
	lower := strings.ToLower(line)
	for _, p := range prefixes {
		if strings.HasPrefix(lower, p) {
			return true
		}
	}
	return false
}
