package openai

import (
	"fmt"
	"strings"

	"github.com/querylab/docquery/internal/core/domain"
)

// contextChunkLimit caps how many ranked chunks go into the prompt.
const contextChunkLimit = 5

var systemPrompts = map[domain.Domain]string{
	domain.DomainInsurance: `You are an expert insurance policy analyst. Analyze insurance-related queries against the provided document context.

When responding to queries about insurance policies, coverage, claims, or benefits:
1. Provide clear, direct answers about coverage, exclusions, and conditions
2. Explain the reasoning behind your conclusions
3. Cite specific policy sections or clauses when available
4. Highlight any limitations or conditions that apply
5. Suggest follow-up questions if the query needs clarification

Respond with a single JSON object:
{"answer": "...", "reasoning": "...", "evidence": ["..."], "limitations": ["..."], "follow_up": ["..."]}

Be precise about coverage details and mention when additional information is needed for a complete assessment.`,

	domain.DomainLegal: `You are an expert legal document analyst. Analyze legal queries against the provided document context.

When responding to queries about contracts, agreements, legal clauses, or obligations:
1. Provide clear interpretations of legal language and terms
2. Explain the legal implications and requirements
3. Reference specific clauses, sections, or provisions
4. Highlight any ambiguities or areas requiring legal counsel

Respond with a single JSON object:
{"answer": "...", "reasoning": "...", "evidence": ["..."], "limitations": ["..."], "follow_up": ["..."]}

Always include appropriate legal disclaimers and recommend consulting qualified legal counsel for important decisions.`,

	domain.DomainHR: `You are an expert HR policy analyst. Analyze HR-related queries against the provided document context.

When responding to queries about employment policies, benefits, procedures, or workplace regulations:
1. Provide clear guidance on HR policies and procedures
2. Explain employee rights, benefits, and obligations
3. Reference specific policy sections or handbook provisions
4. Suggest appropriate next steps or escalation procedures

Respond with a single JSON object:
{"answer": "...", "reasoning": "...", "evidence": ["..."], "limitations": ["..."], "follow_up": ["..."]}

Ensure responses comply with employment law and organizational policies.`,

	domain.DomainCompliance: `You are an expert compliance analyst. Analyze compliance-related queries against the provided document context.

When responding to queries about regulations, standards, audit requirements, or compliance procedures:
1. Provide clear guidance on regulatory requirements
2. Explain compliance obligations and procedures
3. Reference specific regulations, standards, or policy sections
4. Highlight risk areas and mitigation strategies

Respond with a single JSON object:
{"answer": "...", "reasoning": "...", "evidence": ["..."], "limitations": ["..."], "follow_up": ["..."]}

Emphasize staying current with regulatory changes and consulting compliance officers for complex matters.`,

	domain.DomainGeneral: `You are an expert document analyst. Analyze queries against the provided document context.

When responding:
1. Provide clear, direct answers based on the available information
2. Explain your reasoning and methodology
3. Cite specific document sections that support your conclusions
4. Acknowledge limitations in the available information

Respond with a single JSON object:
{"answer": "...", "reasoning": "...", "evidence": ["..."], "limitations": ["..."], "follow_up": ["..."]}`,
}

func systemPrompt(dom domain.Domain) string {
	if p, ok := systemPrompts[dom]; ok {
		return p
	}
	return systemPrompts[domain.DomainGeneral]
}

func buildUserPrompt(query string, result *domain.QueryResult, webContext string) string {
	context := buildContext(result.Candidates)

	if context != "" {
		return fmt.Sprintf(`Query: %s

Context from relevant documents:
%s

Analyze the query in the context of the provided documents and respond in the JSON format specified in the system prompt.`, query, context)
	}

	if webContext != "" {
		return fmt.Sprintf(`Query: %s

No relevant information was found in the uploaded documents for this query.

Web search results:
%s

Provide a response based on the web search results and state clearly that the information comes from online sources, not from the uploaded documents.`, query, webContext)
	}

	return fmt.Sprintf(`Query: %s

No relevant information was found in the uploaded documents for this query, and web search was not available.

State that the information is not available in the uploaded documents and suggest uploading relevant documents.`, query)
}

func buildContext(candidates []domain.SearchCandidate) string {
	var sb strings.Builder
	count := 0
	for _, c := range candidates {
		if count >= contextChunkLimit {
			break
		}
		content := strings.TrimSpace(c.Metadata.Content)
		if content == "" {
			continue
		}
		count++
		fmt.Fprintf(&sb, "Document Chunk %d (Relevance Score: %.3f):\n%s\n---\n",
			count, c.AdjustedScore, content)
	}
	return sb.String()
}
