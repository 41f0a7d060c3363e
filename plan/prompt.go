package plan

import "fmt"

// MaxTextChars caps how much source text is embedded in the user message.
const MaxTextChars = 15000

// systemPrompt is the fixed planning instruction sent to every provider.
const systemPrompt = `You are a slide planner. Convert the provided text into a JSON slide plan.
Follow these rules:
- Respect the 'guidance' string for tone/structure if provided.
- Choose a reasonable number of slides (min 4, max 30) based on content.
- Each slide must include: title (string), bullets (array of short strings).
- If include_notes=true, add an optional notes field (string) for speaker notes.
- Use concise, scannable bullets. Avoid paragraphs.
- Do not include any images or graphics; the app will reuse template images itself.
- Output strictly valid JSON only, matching this schema:

{
  "slides": [
    {
      "title": "string",
      "bullets": ["string", "string", "..."],
      "layout_hint": "title_and_content|title_only|section_header|two_content|quote|comparison|timeline|process|overview|summary",
      "notes": "optional string"
    }
  ]
}
`

// buildUserMessage embeds the guidance and the (truncated) source text into
// the user message.
func buildUserMessage(guidance, text string) string {
	if guidance == "" {
		guidance = "(none)"
	}
	if r := []rune(text); len(r) > MaxTextChars {
		text = string(r[:MaxTextChars])
	}
	return fmt.Sprintf("GUIDANCE (optional): %s\n\nSOURCE TEXT:\n%s\n", guidance, text)
}
