package answer

import (
	"fmt"
	"strings"

	"github.com/poiesic/docent/ai"
	"github.com/poiesic/docent/core"
)

// DefaultInstitution names the college when none is configured.
const DefaultInstitution = "the college"

// DefaultDepartment is used when a request names no department.
const DefaultDepartment = "General"

func systemPrompt(institution, department, transcript string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "You are a helpful college assistant for %s, specializing in %s.\n", institution, department)
	fmt.Fprintf(&sb, "Only answer questions about %s: its academic policies, procedures, requirements and campus life. ", institution)
	sb.WriteString("Politely decline anything unrelated.\n")
	sb.WriteString("Base your answer on the provided context. If the context does not cover the question, say so and ")
	sb.WriteString("recommend that the student verify with official college resources.\n")
	sb.WriteString("Always reply in the same language as the student's latest message.\n")
	fmt.Fprintf(&sb, "\nDepartment Context: %s\n", department)
	if transcript != "" {
		sb.WriteString("\nConversation so far:\n")
		sb.WriteString(transcript)
		sb.WriteByte('\n')
	}
	return sb.String()
}

func formatContext(results []*core.SearchResult) string {
	if len(results) == 0 {
		return "(no matching documents)"
	}
	var sb strings.Builder
	for i, r := range results {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		fmt.Fprintf(&sb, "[%d] (%s)\n%s", i+1, r.Fragment.Source, r.Fragment.Text)
	}
	return sb.String()
}

// stuffMessages puts every fragment into one prompt.
func stuffMessages(system string, results []*core.SearchResult, question string) []ai.Message {
	human := fmt.Sprintf("Context:\n%s\n\nStudent Question: %s", formatContext(results), question)
	return []ai.Message{ai.SystemMessage(system), ai.HumanMessage(human)}
}

// refineMessages asks the model to improve an existing answer with one more fragment.
func refineMessages(system string, existing string, result *core.SearchResult, question string) []ai.Message {
	human := fmt.Sprintf(
		"Student Question: %s\n\nExisting answer:\n%s\n\nAdditional context:\n[%s]\n%s\n\n"+
			"Refine the existing answer using the additional context only if it is relevant. "+
			"Otherwise repeat the existing answer unchanged.",
		question, existing, result.Fragment.Source, result.Fragment.Text)
	return []ai.Message{ai.SystemMessage(system), ai.HumanMessage(human)}
}

// queryPrompt is the plain system prompt used when no department framing is wanted.
const queryPrompt = "Use the following pieces of context to answer the question. " +
	"If you don't know the answer, just say that you don't know, don't try to make up an answer."

// noIndexGuidance is the reply given before any document was ingested.
func noIndexGuidance(question, department string) string {
	return fmt.Sprintf("I understand you're asking about \"%s\" regarding %s.\n\n"+
		"I'm ready to help with college policies and procedures, but it looks like no "+
		"documents have been uploaded to my knowledge base yet.\n\n"+
		"To get started, an administrator can upload relevant college policy documents.\n\n"+
		"In the meantime, I recommend checking with official %s resources or contacting "+
		"the appropriate department directly for accurate information.",
		question, department, department)
}
