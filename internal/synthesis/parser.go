package synthesis

import (
	"regexp"
	"strings"

	"github.com/sells-group/rapport-api/internal/model"
)

const anchorPrefix = "ANCHOR|"

var fenceRE = regexp.MustCompile("(?s)```([a-zA-Z0-9_-]*)[ \t]*\n(.*?)```")

// ParseReply parses the model's free-text reply. Lines starting with
// "ANCHOR|" become anchors when they carry at least four pipe-delimited
// fields; any other line with a colon becomes a knowledge sentence under
// the lower-cased label left of the first colon. Everything else is
// skipped.
func ParseReply(reply string) *Result {
	result := &Result{Brief: model.KnowledgeBrief{}}

	for _, line := range strings.Split(stripFence(reply), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, anchorPrefix) {
			if anchor, ok := parseAnchor(line); ok {
				result.Anchors = append(result.Anchors, anchor)
			}
			continue
		}

		label, sentence, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		key := strings.ToLower(strings.TrimSpace(label))
		sentence = strings.TrimSpace(sentence)
		if key == "" || sentence == "" {
			continue
		}
		result.Brief[key] = append(result.Brief[key], sentence)
	}

	return result
}

// parseAnchor splits an ANCHOR line. Fewer than four fields means the line
// is malformed and silently skipped.
func parseAnchor(line string) (model.Anchor, bool) {
	fields := strings.Split(line, "|")
	if len(fields) < 4 {
		return model.Anchor{}, false
	}

	rest := make([]string, 0, len(fields)-3)
	for _, f := range fields[3:] {
		rest = append(rest, strings.TrimSpace(f))
	}

	return model.Anchor{
		Category: strings.TrimSpace(fields[1]),
		Name:     strings.TrimSpace(fields[2]),
		Summary:  strings.Join(rest, " "),
	}, true
}

// stripFence unwraps an optional fenced code block: a block tagged "brief"
// wins, else the first fenced block, else the raw text.
func stripFence(reply string) string {
	matches := fenceRE.FindAllStringSubmatch(reply, -1)
	if len(matches) == 0 {
		return reply
	}
	for _, m := range matches {
		if m[1] == "brief" {
			return m[2]
		}
	}
	return matches[0][2]
}
