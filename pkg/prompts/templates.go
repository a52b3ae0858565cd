package prompts

import (
	"fmt"
	"strings"
)

// AnswerSystemPrompt frames the final answer generation.
const AnswerSystemPrompt = `You are a research assistant specializing in AI/ML papers.
Answer questions based ONLY on the provided context from research papers.
Cite sources using [arxiv_id] format.
Be precise, technical, and thorough.`

// OutOfScopeSystemPrompt generates a graceful redirect for off-topic queries.
const OutOfScopeSystemPrompt = `You are an AI/ML research assistant.
The user's query is outside your scope. Generate a helpful response that:

1. Acknowledges their message naturally (don't be robotic)
2. References the conversation topic if relevant
3. Explains your focus on AI/ML research papers
4. Suggests a relevant angle if their query could relate to AI/ML

Keep response to 2-3 sentences. Be warm but direct.`

// GuardrailPrompt asks the model to score a query's relevance to the corpus.
// topicContext may be empty; when present it is the fenced conversation tail.
func GuardrailPrompt(query string, threshold int, topicContext string) string {
	var b strings.Builder
	b.WriteString("You are a query relevance validator for an AI/ML research paper database.\n\n")
	if topicContext != "" {
		b.WriteString(topicContext)
		b.WriteString("\n\n")
	}
	fmt.Fprintf(&b, `Score this query on a scale of 0-100 for relevance to AI/ML research:
- 100: Directly about AI/ML research (models, training, architectures, papers)
- 75-99: Related technical topics (math, algorithms, datasets, benchmarks)
- 50-74: Tangentially related (general programming, statistics)
- 0-49: Unrelated (weather, cooking, politics, small talk)

A score of %d or higher passes validation.
Follow-up questions that continue an in-scope conversation are in scope.

Query: %s`, threshold, query)
	return b.String()
}

// GradingPrompt asks the model to judge one chunk against the query. The
// chunk text is capped at 500 characters.
func GradingPrompt(query, chunkText string) string {
	return fmt.Sprintf(`Is this chunk relevant to the query?

Query: %s

Chunk: %s

Judge relevance on topical match, not writing quality. A chunk is relevant
if it helps answer the query, even partially.`, query, truncateEllipsis(chunkText, 500))
}

// RewritePrompt asks the model to reformulate a query that retrieved too few
// relevant chunks. feedback lists the per-chunk grading outcomes.
func RewritePrompt(originalQuery, currentQuery string, feedback []string) string {
	var b strings.Builder
	b.WriteString("The original query did not retrieve enough relevant documents.\n\n")
	fmt.Fprintf(&b, "Original query: %s\n", originalQuery)
	if currentQuery != originalQuery {
		fmt.Fprintf(&b, "Current query: %s\n", currentQuery)
	}
	if len(feedback) > 0 {
		b.WriteString("\nGrading feedback:\n")
		b.WriteString(strings.Join(feedback, "\n"))
		b.WriteString("\n")
	}
	b.WriteString(`
Rewrite the query to improve retrieval: use technical terminology likely to
appear in research papers, expand abbreviations, and add synonyms for key
concepts.`)
	return b.String()
}

// SummarizePrompt asks for a short overview of a paper's abstract.
func SummarizePrompt(title, abstract string) string {
	return fmt.Sprintf(`Summarize this research paper abstract in 2-3 sentences. Focus on:
- The main problem or question addressed
- The key approach or method
- The primary findings or contributions

Title: %s
Abstract: %s

Provide only the summary, no preamble.`, title, abstract)
}

// RouterSystemPrompt frames tool selection for the agent loop.
const RouterSystemPrompt = `You are the routing step of a research paper assistant.
Decide the next action: call one tool to gather more information, or stop and
generate the answer from what has been gathered so far.

Rules:
- Call retrieve_chunks first for any question about paper content.
- Do not repeat a tool call with the same arguments that already succeeded.
- If the gathered context already answers the query, or no tool can help,
  set should_generate to true.
- When iterations are exhausted you must set should_generate to true.`

// RouterPrompt describes the available tools and the run so far.
func RouterPrompt(query string, tools []ToolDescription, toolHistory []string, conversation string, remainingIterations int) string {
	var b strings.Builder

	if conversation != "" {
		b.WriteString(conversation)
		b.WriteString("\n\n")
	}

	b.WriteString("Available tools:\n")
	for _, t := range tools {
		fmt.Fprintf(&b, "- %s: %s\n", t.Name, t.Description)
		for _, p := range t.Parameters {
			fmt.Fprintf(&b, "    %s (%s): %s\n", p.Name, p.Type, p.Description)
		}
	}

	if len(toolHistory) > 0 {
		b.WriteString("\nTool calls so far:\n")
		b.WriteString(strings.Join(toolHistory, "\n"))
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "\nRemaining iterations: %d\n", remainingIterations)
	fmt.Fprintf(&b, "\nQuery: %s", query)
	return b.String()
}

// ToolDescription is the router's view of a registered tool.
type ToolDescription struct {
	Name        string
	Description string
	Parameters  []ToolParameterDescription
}

// ToolParameterDescription is one argument in a tool description.
type ToolParameterDescription struct {
	Name        string
	Type        string
	Description string
}
