// Package diagram statically checks mind map diagram text.
package diagram

import (
	"fmt"
	"strings"
)

const MindMapType = "mindmap"

var knownTypes = map[string]bool{
	MindMapType:       true,
	"graph":           true,
	"flowchart":       true,
	"sequenceDiagram": true,
	"classDiagram":    true,
	"stateDiagram":    true,
	"stateDiagram-v2": true,
	"erDiagram":       true,
	"gantt":           true,
	"pie":             true,
	"journey":         true,
	"timeline":        true,
	"gitGraph":        true,
}

const forbiddenLabelChars = "[]{}()|"

type Result struct {
	Valid  bool     `json:"valid"`
	Type   string   `json:"type,omitempty"`
	Errors []string `json:"errors,omitempty"`
}

// Validate never fails; an invalid diagram is reported through Result.
func Validate(source string) Result {
	lines := strings.Split(strings.ReplaceAll(source, "\r\n", "\n"), "\n")

	first := -1
	for i, l := range lines {
		if strings.TrimSpace(l) != "" {
			first = i
			break
		}
	}
	if first < 0 {
		return invalid("", "diagram is empty")
	}

	declared := strings.Fields(lines[first])[0]
	if !knownTypes[declared] {
		return invalid("", fmt.Sprintf("line %d: unknown diagram type %q", first+1, declared))
	}

	res := Result{Valid: true, Type: declared}
	if declared == MindMapType {
		res.Errors = validateOutline(lines[first+1:], first+1)
		res.Valid = len(res.Errors) == 0
	}
	return res
}

func invalid(kind string, msg string) Result {
	return Result{Valid: false, Type: kind, Errors: []string{msg}}
}

// validateOutline checks indentation depth and label characters of mind map nodes.
// offset is the index of the first line in the original source.
func validateOutline(lines []string, offset int) []string {
	var errs []string
	unit := 0
	indentChar := byte(0)
	prevDepth := 0
	nodes := 0

	for i, l := range lines {
		if strings.TrimSpace(l) == "" {
			continue
		}
		lineNo := offset + i + 1
		label := strings.TrimLeft(l, " \t")
		indent := l[:len(l)-len(label)]
		label = strings.TrimSpace(label)
		nodes++

		if strings.ContainsAny(label, forbiddenLabelChars) {
			errs = append(errs, fmt.Sprintf("line %d: label %q contains one of %s", lineNo, label, forbiddenLabelChars))
		}

		if indent == "" {
			errs = append(errs, fmt.Sprintf("line %d: node must be indented below the declaration", lineNo))
			continue
		}
		if strings.Contains(indent, " ") && strings.Contains(indent, "\t") {
			errs = append(errs, fmt.Sprintf("line %d: mixed tabs and spaces in indentation", lineNo))
			continue
		}
		if indentChar == 0 {
			indentChar = indent[0]
		} else if indent[0] != indentChar {
			errs = append(errs, fmt.Sprintf("line %d: indentation character differs from previous lines", lineNo))
			continue
		}
		if unit == 0 {
			unit = len(indent)
		}
		if len(indent)%unit != 0 {
			errs = append(errs, fmt.Sprintf("line %d: indentation of %d is not a multiple of %d", lineNo, len(indent), unit))
			continue
		}
		depth := len(indent) / unit
		if depth > prevDepth+1 {
			errs = append(errs, fmt.Sprintf("line %d: indentation jumps from depth %d to %d", lineNo, prevDepth, depth))
			continue
		}
		if nodes > 1 && depth == 1 {
			errs = append(errs, fmt.Sprintf("line %d: mind map must have a single root node", lineNo))
			continue
		}
		prevDepth = depth
	}
	if nodes == 0 {
		errs = append(errs, "mindmap has no nodes")
	}
	return errs
}
