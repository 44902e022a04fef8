package annotate

import (
	"fmt"
	"strings"

	"github.com/akolanti/docmind/internal/domain/documentModel"
)

const systemPrompt = "You are an assistant that turns study material into structured learning aids. " +
	"Only use information found in the provided document. Write in the requested language."

const jsonOnly = "Respond with a single JSON object and nothing else."

func restructurePrompt(text string, o RestructureOptions) string {
	return fmt.Sprintf(
		"Reorganize the document below into well structured Markdown in %s.\nStyle: %s.\n"+
			"Keep every fact, group related ideas under clear headings and use lists where they help.\n\nDocument:\n%s",
		o.Language, o.Style, text)
}

var summaryLength = map[documentModel.SummaryType]string{
	documentModel.SummaryBrief:    "two or three sentences",
	documentModel.SummaryStandard: "one or two paragraphs",
	documentModel.SummaryDetailed: "a detailed section-by-section summary",
}

func summaryPrompt(text string, o SummaryOptions) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Summarize the document below in %s as Markdown. Length: %s.\n", o.Language, summaryLength[o.Type])
	if o.IncludeKeyPoints {
		b.WriteString("End with a \"Key points\" bullet list.\n")
	}
	b.WriteString("\nDocument:\n")
	b.WriteString(text)
	return b.String()
}

func conceptPrompt(text string, o ConceptOptions) string {
	return fmt.Sprintf(
		"Extract at most %d key concepts from the document below, in %s. %s\n"+
			`Shape: {"concepts":[{"term":string,"definition":string,"category":one of %s,`+
			`"importance":integer 1-5,"occurrences":[{"position":character offset,"context":short quote,"confidence":0-1}],`+
			`"relatedTerms":[string]}]}`+"\n\nDocument:\n%s",
		o.MaxConcepts, o.Language, jsonOnly, strings.Join(documentModel.ConceptCategories, "|"), text)
}

func exercisePrompt(text string, o ExerciseOptions) string {
	types := make([]string, len(o.Types))
	for i, t := range o.Types {
		types[i] = string(t)
	}
	return fmt.Sprintf(
		"Write %d %s difficulty exercises in %s about the document below, using only these types: %s. %s\n"+
			`Shape: {"exercises":[{"type":string,"question":string,"options":[string],"correctAnswer":string,"explanation":string}]}`+"\n"+
			`multiple_choice needs at least two options and correctAnswer must equal one option; true_false answers are "true" or "false".`+
			"\n\nDocument:\n%s",
		o.Count, o.Difficulty, o.Language, strings.Join(types, ", "), jsonOnly, text)
}

func mindMapPrompt(text string, o MindMapOptions) string {
	return fmt.Sprintf(
		"Build a mind map of the document below in %s with at most %d nodes. Style: %s. %s\n"+
			`Shape: {"title":string,"diagramSource":string}`+"\n"+
			"diagramSource is Mermaid text starting with the line \"mindmap\", one node per line, nesting shown by "+
			"two-space indentation, a single root node, and labels without any of the characters []{}()|.\n\nDocument:\n%s",
		o.Language, o.MaxNodes, o.Style, jsonOnly, text)
}
