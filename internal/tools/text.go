package tools

import (
	"context"
	"fmt"
	"strings"
)

// LLMChat exposes the chat-completion client as a tool.
type LLMChat struct {
	llm *LLMClient
}

func NewLLMChat(llm *LLMClient) *LLMChat { return &LLMChat{llm: llm} }

func (l *LLMChat) Name() string     { return "llm_chat" }
func (l *LLMChat) Describe() string { return "Send a prompt to the configured LLM" }

func (l *LLMChat) Execute(ctx context.Context, input map[string]interface{}) Result {
	prompt, ok := stringParam(input, "prompt")
	if !ok {
		return Fail("llm_chat requires a prompt parameter")
	}
	reply, err := l.llm.Chat(ctx, prompt)
	if err != nil {
		return Fail("llm chat: %v", err)
	}
	return Ok(map[string]interface{}{"reply": reply})
}

// WriteBlog drafts a long-form post on a topic via the LLM.
type WriteBlog struct {
	llm *LLMClient
}

func NewWriteBlog(llm *LLMClient) *WriteBlog { return &WriteBlog{llm: llm} }

func (w *WriteBlog) Name() string     { return "write_blog" }
func (w *WriteBlog) Describe() string { return "Draft a blog post on a given topic" }

func (w *WriteBlog) Execute(ctx context.Context, input map[string]interface{}) Result {
	topic, ok := stringParam(input, "topic")
	if !ok {
		return Fail("write_blog requires a topic parameter")
	}
	tone, _ := stringParam(input, "tone")
	if tone == "" {
		tone = "informative"
	}

	prompt := fmt.Sprintf(
		"Write a well-structured blog post about %q. Tone: %s. Use markdown headings and keep it under 800 words.",
		topic, tone)
	draft, err := w.llm.Chat(ctx, prompt)
	if err != nil {
		return Fail("write blog: %v", err)
	}
	return Ok(map[string]interface{}{"topic": topic, "draft": draft})
}

// swearWords is the deterministic wordlist used when no LLM is configured.
// Deliberately short; the LLM path handles obfuscated variants.
var swearWords = []string{
	"damn", "hell", "shit", "fuck", "bitch", "bastard", "asshole", "crap",
}

// DetectSwearing flags profanity in text. Wordlist first; when an LLM is
// available it is consulted for anything the wordlist misses.
type DetectSwearing struct {
	llm *LLMClient
}

func NewDetectSwearing(llm *LLMClient) *DetectSwearing { return &DetectSwearing{llm: llm} }

func (d *DetectSwearing) Name() string     { return "detect_swearing" }
func (d *DetectSwearing) Describe() string { return "Detect profanity in a piece of text" }

func (d *DetectSwearing) Execute(ctx context.Context, input map[string]interface{}) Result {
	text, ok := stringParam(input, "text")
	if !ok {
		return Fail("detect_swearing requires a text parameter")
	}

	lower := strings.ToLower(text)
	var matches []string
	for _, w := range swearWords {
		if strings.Contains(lower, w) {
			matches = append(matches, w)
		}
	}
	if len(matches) > 0 {
		return Ok(map[string]interface{}{
			"contains_swearing": true,
			"matches":           matches,
			"method":            "wordlist",
		})
	}

	if d.llm != nil && d.llm.Enabled() {
		prompt := fmt.Sprintf(
			"Does the following text contain profanity or obfuscated swearing? Answer with exactly YES or NO.\n\n%s",
			truncate(text, 2000))
		reply, err := d.llm.Chat(ctx, prompt)
		if err == nil {
			flagged := strings.HasPrefix(strings.ToUpper(strings.TrimSpace(reply)), "YES")
			return Ok(map[string]interface{}{
				"contains_swearing": flagged,
				"method":            "llm",
			})
		}
	}

	return Ok(map[string]interface{}{
		"contains_swearing": false,
		"method":            "wordlist",
	})
}
