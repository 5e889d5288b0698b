package normalize

import (
	"fmt"
	"strings"
)

// ExtractText implements the fixed precedence for pulling display text out
// of an arbitrary JSON content value:
//
//  1. a string leaf is its own text;
//  2. an object whose "content_type" is "code" is wrapped as a fenced
//     block;
//  3. "content_type" == "tether_browsing_display" is rendered as
//     "[Browsing Result: <result-or-domain>]";
//  4. otherwise an object's non-empty "text" field is the text;
//  5. otherwise its "parts" array has each entry treated as a string or
//     as {type:"text", text} and joined by "\n".
//
// The result is trimmed of surrounding whitespace; an empty result means
// the caller should skip the message.
func ExtractText(content any) string {
	switch v := content.(type) {
	case string:
		return strings.TrimSpace(v)
	case map[string]any:
		return strings.TrimSpace(extractFromObject(v))
	default:
		return ""
	}
}

func extractFromObject(obj map[string]any) string {
	if contentType, ok := obj["content_type"].(string); ok {
		switch contentType {
		case "code":
			return wrapCodeBlock(obj)
		case "tether_browsing_display":
			return browsingResult(obj)
		}
	}

	if text, ok := obj["text"].(string); ok && text != "" {
		return text
	}

	if parts, ok := obj["parts"].([]any); ok {
		return joinParts(parts)
	}

	return ""
}

func joinParts(parts []any) string {
	var lines []string
	for _, p := range parts {
		switch part := p.(type) {
		case string:
			if part != "" {
				lines = append(lines, part)
			}
		case map[string]any:
			if partType, _ := part["type"].(string); partType == "text" {
				if text, ok := part["text"].(string); ok && text != "" {
					lines = append(lines, text)
				}
			}
		}
	}
	return strings.Join(lines, "\n")
}

func wrapCodeBlock(obj map[string]any) string {
	lang, _ := obj["language"].(string)
	text, _ := obj["text"].(string)
	return fmt.Sprintf("```%s\n%s\n```", lang, text)
}

func browsingResult(obj map[string]any) string {
	if result, ok := obj["result"].(string); ok && result != "" {
		return fmt.Sprintf("[Browsing Result: %s]", result)
	}
	if domain, ok := obj["domain"].(string); ok && domain != "" {
		return fmt.Sprintf("[Browsing Result: %s]", domain)
	}
	return "[Browsing Result: ]"
}
