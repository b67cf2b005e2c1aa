package main

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/fatih/color"
	diffpatch "github.com/sergi/go-diff/diffmatchpatch"
	"golang.org/x/exp/maps"

	"github.com/arcanewizards/arcane/protocol"
)

// treePrinter renders a tree one node per line, indented by depth:
//
//	3 core/button text="Go" mode="normal"
type treePrinter struct {
	key       func(string, ...any) string
	kind      func(string, ...any) string
	field     func(string, ...any) string
	insert    func(string, ...any) string
	delete    func(string, ...any) string
	separator func(string, ...any) string
}

func newTreePrinter(noColor bool) *treePrinter {
	sprintf := func(attributes ...color.Attribute) func(string, ...any) string {
		c := color.New(attributes...)
		if noColor {
			c.DisableColor()
		} else {
			c.EnableColor()
		}
		return c.SprintfFunc()
	}
	return &treePrinter{
		key:       sprintf(color.FgCyan),
		kind:      sprintf(color.Bold),
		field:     sprintf(color.FgHiBlack),
		insert:    sprintf(color.FgGreen),
		delete:    sprintf(color.FgRed),
		separator: sprintf(color.FgBlue),
	}
}

func (self *treePrinter) render(root *protocol.Node) string {
	if root == nil {
		return ""
	}
	var b strings.Builder
	root.Walk(func(node *protocol.Node, depth int) bool {
		b.WriteString(strings.Repeat("  ", depth))
		b.WriteString(self.key("%d", node.Key))
		b.WriteString(" ")
		b.WriteString(self.kind("%s/%s", node.Namespace, node.Component))

		names := maps.Keys(node.Fields)
		slices.Sort(names)
		for _, name := range names {
			valueJson, err := json.Marshal(node.Fields[name])
			if err != nil {
				valueJson = []byte(fmt.Sprintf("%v", node.Fields[name]))
			}
			b.WriteString(" ")
			b.WriteString(self.field("%s=", name))
			b.Write(valueJson)
		}
		b.WriteString("\n")
		return true
	})
	return b.String()
}

// lineDiff renders only the changed lines of two renderings, with two lines of context
func (self *treePrinter) lineDiff(from string, to string) string {
	dmp := diffpatch.New()
	fromChars, toChars, lines := dmp.DiffLinesToChars(from, to)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(fromChars, toChars, false), lines)

	var b strings.Builder
	for i, diff := range diffs {
		diffLines := strings.SplitAfter(diff.Text, "\n")
		if diffLines[len(diffLines)-1] == "" {
			diffLines = diffLines[:len(diffLines)-1]
		}
		switch diff.Type {
		case diffpatch.DiffInsert:
			for _, line := range diffLines {
				b.WriteString(self.insert("+ %s", strings.TrimSuffix(line, "\n")))
				b.WriteString("\n")
			}
		case diffpatch.DiffDelete:
			for _, line := range diffLines {
				b.WriteString(self.delete("- %s", strings.TrimSuffix(line, "\n")))
				b.WriteString("\n")
			}
		case diffpatch.DiffEqual:
			var context []string
			switch {
			case len(diffs) == 1:
			case i == 0:
				context = diffLines[max(0, len(diffLines)-2):]
			case i == len(diffs)-1:
				context = diffLines[:min(2, len(diffLines))]
			case len(diffLines) <= 4:
				context = diffLines
			default:
				context = append(slices.Clone(diffLines[:2]), diffLines[len(diffLines)-2:]...)
			}
			for _, line := range context {
				b.WriteString("  ")
				b.WriteString(line)
			}
		}
	}
	return b.String()
}

func (self *treePrinter) separatorLine(now time.Time) string {
	return self.separator("-- %s", now.Format(time.TimeOnly))
}
