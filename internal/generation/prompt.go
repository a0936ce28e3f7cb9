package generation

import (
	"fmt"
	"strings"
)

// Prompt is a system instruction plus one user message
type Prompt struct {
	System string
	User   string
}

const writerSystem = "You are a thoughtful blog writer. Reply with the requested content only, without commentary."

// TitlePrompt asks for one new title, listing the titles it must not repeat
func TitlePrompt(exclusions []string, topicHint string) Prompt {
	var sb strings.Builder
	if len(exclusions) > 0 {
		sb.WriteString(fmt.Sprintf("Here are the last %d blog posts:\n\n", len(exclusions)))
		for _, t := range exclusions {
			sb.WriteString("- ")
			sb.WriteString(t)
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}
	if topicHint != "" {
		sb.WriteString(fmt.Sprintf("The new post should be about %s.\n", topicHint))
	}
	sb.WriteString("Write the title of a new blog post that is unique and interesting")
	if len(exclusions) > 0 {
		sb.WriteString(" and is not one of the titles above")
	}
	sb.WriteString(". Reply with the title only, on a single line.")

	return Prompt{System: writerSystem, User: sb.String()}
}

// BodyPrompt asks for the markdown body of title
func BodyPrompt(title, styleHint string) Prompt {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Write a blog post titled %q.\n", title))
	sb.WriteString("Requirements:\n")
	sb.WriteString("- Output Markdown.\n")
	sb.WriteString("- Do not repeat the title as a heading.\n")
	sb.WriteString("- Open with a short paragraph that summarises the post.\n")
	if styleHint != "" {
		sb.WriteString(fmt.Sprintf("- Style: %s.\n", styleHint))
	}
	return Prompt{System: writerSystem, User: sb.String()}
}

// ImageDescriptionPrompt asks for a text-to-image prompt for a cover image
func ImageDescriptionPrompt(title string) Prompt {
	return Prompt{
		System: "You write concise prompts for an image generation model.",
		User: fmt.Sprintf("Describe, in one or two sentences, a cover illustration for a blog post titled %q. "+
			"No text or lettering in the image.", title),
	}
}
