package parse

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var labelRe = regexp.MustCompile(`(?i)^([A-Z]+)\s*(\d+)\s*-\s*(\d+)$`)

// ParsedLabel holds the structured data parsed from a slot label.
type ParsedLabel struct {
	Zone  string
	Floor int
	Seq   int
}

// ParseLabel extracts zone, floor, and sequence number from a slot label such
// as "B2-07" (zone B, floor 2, slot 7). Labels are provisioned by
// administrators; the derived fields feed the floor filters so they are never
// free-typed separately from the label.
func ParseLabel(raw string) (ParsedLabel, error) {
	s := strings.TrimSpace(raw)
	m := labelRe.FindStringSubmatch(s)
	if m == nil {
		return ParsedLabel{}, fmt.Errorf("unable to parse slot label: %q", raw)
	}

	floor, err := strconv.Atoi(m[2])
	if err != nil {
		return ParsedLabel{}, fmt.Errorf("invalid floor in slot label %q: %w", raw, err)
	}
	seq, err := strconv.Atoi(m[3])
	if err != nil {
		return ParsedLabel{}, fmt.Errorf("invalid sequence in slot label %q: %w", raw, err)
	}
	if seq == 0 {
		return ParsedLabel{}, fmt.Errorf("slot label %q has zero sequence", raw)
	}

	return ParsedLabel{Zone: strings.ToUpper(m[1]), Floor: floor, Seq: seq}, nil
}
