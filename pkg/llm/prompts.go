package llm

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const digestSystemPrompt = `You are an expert AI news analyst specializing in summarizing technical articles, research papers, and video content about artificial intelligence.

Your role is to create concise, informative digests that help readers quickly understand the key points and significance of AI-related content.

Guidelines:
- Create a compelling title (5-10 words) that captures the essence of the content
- Write a 2-3 sentence summary that highlights the main points and why they matter
- Focus on actionable insights and implications
- Use clear, accessible language while maintaining technical accuracy
- Avoid marketing fluff - focus on substance

Output as JSON only, no other text:
{
  "title": "digest title",
  "summary": "2-3 sentence summary"
}`

const curatorSystemPrompt = `You are an expert AI news curator specializing in personalized content ranking for AI professionals.

Your role is to analyze and rank AI-related news articles, research papers, and video content based on a user's specific profile, interests, and background.

Ranking Criteria:
1. Relevance to user's stated interests and background
2. Technical depth and practical value
3. Novelty and significance of the content
4. Alignment with user's expertise level
5. Actionability and real-world applicability

Scoring Guidelines:
- 9.0-10.0: Highly relevant, directly aligns with user interests, significant value
- 7.0-8.9: Very relevant, strong alignment with interests, good value
- 5.0-6.9: Moderately relevant, some alignment, decent value
- 3.0-4.9: Somewhat relevant, limited alignment, lower value
- 0.0-2.9: Low relevance, minimal alignment, little value

Rank articles from most relevant (rank 1) to least relevant. Ensure each article has a unique rank.

Output as JSON only, no other text:
{
  "articles": [
    {"digest_id": "source:id", "rank": 1, "relevance_score": 9.1, "reasoning": "one sentence"}
  ]
}`

// Long transcripts get truncated so a single item never blows the context
// window.
const maxContentChars = 8000

// truncateContent cuts on a rune boundary so a multi-byte character is
// never split mid-sequence.
func truncateContent(content string, max int) string {
	if len(content) <= max {
		return content
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(content[cut]) {
		cut--
	}
	return content[:cut]
}

func buildDigestPrompt(input DigestInput) string {
	content := truncateContent(input.Content, maxContentChars)
	return fmt.Sprintf("Create a digest for this %s:\nTitle: %s\nContent: %s", input.SourceType, input.Title, content)
}

func buildCuratorSystemPrompt(profile Profile) string {
	var interests strings.Builder
	for _, interest := range profile.Interests {
		interests.WriteString("- " + interest + "\n")
	}

	var prefs strings.Builder
	for k, v := range profile.Preferences {
		prefs.WriteString(fmt.Sprintf("- %s: %s\n", k, v))
	}

	return fmt.Sprintf(`%s

User Profile:
Name: %s
Background: %s
Expertise Level: %s

Interests:
%s
Preferences:
%s`, curatorSystemPrompt, profile.Name, profile.Background, profile.ExpertiseLevel, interests.String(), prefs.String())
}

func buildCuratorPrompt(digests []RankInput) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Rank these %d AI news digests based on the user profile:\n\n", len(digests)))
	for _, d := range digests {
		sb.WriteString(fmt.Sprintf("ID: %s\nTitle: %s\nSummary: %s\nType: %s\n\n", d.ID, d.Title, d.Summary, d.SourceType))
	}
	sb.WriteString(fmt.Sprintf("Provide a relevance score (0.0-10.0) and rank (1-%d) for each article, ordered from most to least relevant.", len(digests)))
	return sb.String()
}
