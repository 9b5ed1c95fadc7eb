package router

import (
	"context"
	"strings"
)

// Class is the routing decision for one utterance.
type Class string

const (
	Tool    Class = "TOOL"
	Simple  Class = "SIMPLE"
	Complex Class = "COMPLEX"
)

const classifyPrompt = `Classify if this query needs:
- TOOL: a web search or a screenshot of the computer screen
- SIMPLE: quick answer, command, basic question, or factual lookup
- COMPLEX: deep reasoning, analysis, difficult problems, or detailed explanations

Consider TOOL: an explicit request to search the web or to take or look at a screenshot
Consider SIMPLE: greetings, short commands, simple math, basic facts
Consider COMPLEX: "analyze", "compare", "explain why", "best approach", multi-step reasoning, complex coding

Respond with ONLY the word TOOL, SIMPLE, or COMPLEX, nothing else.`

// Classifier sorts utterances into classes.
type Classifier struct {
	cfg Config
}

// NewClassifier creates a classifier.
func NewClassifier(cfg Config) *Classifier {
	return &Classifier{cfg: cfg.withDefaults("classifier")}
}

// Classify returns the class of utterance. Backend failures yield Simple.
func (c *Classifier) Classify(ctx context.Context, utterance string) Class {
	text, err := c.cfg.ask(ctx, classifyPrompt, utterance)
	if err != nil {
		c.cfg.Logger.Warn("classification failed, defaulting to SIMPLE", "error", err)
		return Simple
	}

	class := ParseClass(text)
	c.cfg.Logger.Debug("classified", "class", class, "raw", text)
	return class
}

// ParseClass maps a model reply to a class by keyword containment.
// COMPLEX wins over TOOL, which wins over SIMPLE; anything else is Simple.
func ParseClass(text string) Class {
	upper := strings.ToUpper(text)
	switch {
	case strings.Contains(upper, string(Complex)):
		return Complex
	case strings.Contains(upper, string(Tool)):
		return Tool
	default:
		return Simple
	}
}
