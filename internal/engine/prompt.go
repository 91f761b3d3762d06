package engine

import "strings"

// promptTemplate grounds the generator in the retrieved context. The two
// interpolated fields are the concatenated chunk texts and the original
// question. The instructions require the model to admit when the context
// lacks the answer instead of inventing one.
const promptTemplate = `You are a market research analyst. Using the provided context, answer the question thoughtfully.
If the information isn't available in the context, say so. Don't make up information.

Context: {context}

Question: {question}

Provide a clear, well-structured answer that:
1. Directly addresses the question
2. Cites specific information from the sources
3. Highlights key insights and trends
4. Notes any limitations in the available information

Answer:`

// buildPrompt interpolates the retrieved context and the question into the
// analyst template. Each per-call prompt is assembled into a fresh string,
// never a shared buffer.
func buildPrompt(contextText, question string) string {
	prompt := strings.ReplaceAll(promptTemplate, "{context}", contextText)
	return strings.ReplaceAll(prompt, "{question}", question)
}
