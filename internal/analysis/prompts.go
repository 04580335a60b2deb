package analysis

import "fmt"

const summaryPromptTemplate = `You are a commodities market analyst. Summarize the following metal market news article in 2-3 sentences. Focus on prices, supply, demand, and market impact. Respond with the summary only.

Article:
%s`

const sentimentPromptTemplate = `You are a commodities market analyst. Classify the market sentiment of the following metal market news article. Respond with exactly one word: positive, negative, or neutral.

Article:
%s`

const keywordsPromptTemplate = `You are a commodities market analyst. Extract up to 10 keywords from the following metal market news article. Prefer metal names, company names, exchanges, and market terms. Respond with a comma-separated list only.

Article:
%s`

const importancePromptTemplate = `You are a commodities market analyst. Rate the importance of the following metal market news article for a base metals trader on a scale of 1 to 10, where 10 is market-moving news. Respond with the integer rating first, optionally followed by a one-sentence rationale.

Article:
%s`

const translationPromptTemplate = `Translate the following metal market news headline into natural Japanese suitable for a financial news reader. Respond with the translation only.

Headline:
%s`

func summaryPrompt(text string) string {
	return fmt.Sprintf(summaryPromptTemplate, text)
}

func sentimentPrompt(text string) string {
	return fmt.Sprintf(sentimentPromptTemplate, text)
}

func keywordsPrompt(text string) string {
	return fmt.Sprintf(keywordsPromptTemplate, text)
}

func importancePrompt(text string) string {
	return fmt.Sprintf(importancePromptTemplate, text)
}

func translationPrompt(title string) string {
	return fmt.Sprintf(translationPromptTemplate, title)
}
