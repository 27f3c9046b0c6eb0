// Package router decides which capability handles a user turn.
//
// Routing is deterministic rule matching over the message text, evaluated in
// a fixed priority order with no fallthrough once a tier matches. The rules
// are an immutable trigger catalog (see triggers.go) initialized at process
// start; every decision records the rule that matched for diagnostics.
package router

import (
	"strings"

	"github.com/koopa0/parley/internal/conversation"
	"github.com/koopa0/parley/internal/knowledge"
	"github.com/koopa0/parley/internal/log"
)

// Capability identifies the backend that handles a turn.
type Capability string

const (
	// CapabilityVisionChat routes to the multimodal completion adapter.
	CapabilityVisionChat Capability = "vision_chat"
	// CapabilityImageGeneration routes to the image generation adapter.
	CapabilityImageGeneration Capability = "image_generation"
	// CapabilityWeather routes to the weather lookup adapter.
	CapabilityWeather Capability = "weather"
	// CapabilityKnowledgeBase answers from the static knowledge base.
	CapabilityKnowledgeBase Capability = "knowledge_base"
	// CapabilityWebSearchChat is chat completion with a web-search pre-step.
	CapabilityWebSearchChat Capability = "web_search_chat"
	// CapabilityPlainChat is plain chat completion.
	CapabilityPlainChat Capability = "plain_chat"
)

// Capabilities are the feature flags consulted during routing.
type Capabilities struct {
	// WebSearch enables the web-search-augmented chat tier.
	WebSearch bool
}

// Decision is the outcome of routing one turn. It is ephemeral: computed per
// turn, never persisted.
type Decision struct {
	Capability Capability

	// Parameter is the extracted argument for the routed capability: the
	// image prompt for image generation, the location for weather.
	Parameter string

	// ParameterMissing is set when a trigger matched but no usable
	// parameter could be extracted. The caller asks the user for the
	// missing piece instead of invoking the adapter.
	ParameterMissing bool

	// Answer is the verbatim knowledge base answer for KnowledgeBase hits.
	Answer string

	// MatchedRule identifies the rule that fired, for diagnostics and logs.
	MatchedRule string
}

// Router inspects a user message and picks the capability for the turn.
type Router struct {
	kb     *knowledge.Store
	logger log.Logger
}

// New creates a Router over the given knowledge base.
func New(kb *knowledge.Store, logger log.Logger) *Router {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Router{kb: kb, logger: logger}
}

// Route decides which capability handles the message.
//
// Priority order, first match wins:
//  1. attached image → VisionChat (an image is an unambiguous signal that
//     overrides any textual trigger)
//  2. image-generation trigger → ImageGeneration
//  3. weather trigger → Weather
//  4. knowledge base match → KnowledgeBase
//  5. search intent, if the web-search capability is enabled → WebSearchChat
//  6. everything else → PlainChat
//
// Explicit commands and precise factual matches pre-empt the more expensive,
// less deterministic general-purpose paths. Ties within a tier are broken by
// declaration order of the trigger list.
//
// history is accepted for contract compatibility; the current rule set is
// stateless with respect to prior turns.
func (r *Router) Route(message string, hasImage bool, history []conversation.Message, caps Capabilities) Decision {
	_ = history

	if hasImage {
		return r.finish(Decision{Capability: CapabilityVisionChat, MatchedRule: "vision:image_attached"})
	}

	trimmed := strings.TrimSpace(message)
	lower := asciiLower(trimmed)

	if d, ok := matchImageGeneration(trimmed, lower); ok {
		return r.finish(d)
	}

	if d, ok := matchWeather(trimmed, lower); ok {
		return r.finish(d)
	}

	if entry, ok := r.kb.Lookup(message); ok {
		return r.finish(Decision{
			Capability:  CapabilityKnowledgeBase,
			Answer:      entry.Answer,
			MatchedRule: "kb:" + entry.ID,
		})
	}

	if caps.WebSearch {
		for _, trigger := range searchTriggers {
			if strings.Contains(lower, trigger) {
				return r.finish(Decision{
					Capability:  CapabilityWebSearchChat,
					MatchedRule: "search:" + trigger,
				})
			}
		}
	}

	return r.finish(Decision{Capability: CapabilityPlainChat, MatchedRule: "default"})
}

func (r *Router) finish(d Decision) Decision {
	r.logger.Debug("routed turn",
		"capability", d.Capability,
		"rule", d.MatchedRule,
		"parameter_missing", d.ParameterMissing,
	)
	return d
}

// matchImageGeneration checks the image-generation trigger tier.
//
// The routed parameter is the message with the matched trigger phrase
// removed and trimmed. An empty remainder reports ParameterMissing instead
// of routing with an empty prompt.
func matchImageGeneration(original, lower string) (Decision, bool) {
	for _, prefix := range imagePrefixTriggers {
		if strings.HasPrefix(lower, prefix) {
			prompt := strings.TrimSpace(original[len(prefix):])
			return Decision{
				Capability:       CapabilityImageGeneration,
				Parameter:        prompt,
				ParameterMissing: prompt == "",
				MatchedRule:      "image_prefix:" + prefix,
			}, true
		}
	}
	for _, infix := range imageInfixTriggers {
		if idx := strings.Index(lower, infix); idx >= 0 {
			prompt := strings.TrimSpace(original[idx+len(infix):])
			return Decision{
				Capability:       CapabilityImageGeneration,
				Parameter:        prompt,
				ParameterMissing: prompt == "",
				MatchedRule:      "image_infix:" + infix,
			}, true
		}
	}
	return Decision{}, false
}

// matchWeather checks the weather trigger tier and extracts a location.
//
// Location extraction prefers text following the last " in " or " for ". A
// remainder that is empty or a generic temporal word ("today", "now") is a
// missing parameter, not a location.
func matchWeather(original, lower string) (Decision, bool) {
	for _, prefix := range weatherPrefixTriggers {
		if !strings.HasPrefix(lower, prefix) {
			continue
		}
		location := extractLocation(original, lower, prefix)
		return Decision{
			Capability:       CapabilityWeather,
			Parameter:        location,
			ParameterMissing: location == "",
			MatchedRule:      "weather_prefix:" + prefix,
		}, true
	}
	return Decision{}, false
}

// extractLocation pulls a location out of a weather query. Returns "" when
// no resolvable location is present.
//
// asciiLower preserves byte offsets, so indices computed on the lowered copy
// slice the original directly.
func extractLocation(original, lower, prefix string) string {
	start, end := len(prefix), len(lower)

	// Prefer text after the last " in " or " for " marker.
	for _, marker := range []string{" in ", " for "} {
		if idx := strings.LastIndex(" "+lower[start:end], marker); idx >= 0 {
			start += idx - 1 + len(marker)
			break
		}
	}

	rest := lower[start:end]
	start += len(rest) - len(strings.TrimLeft(rest, " \t"))
	end = start + len(strings.TrimRight(lower[start:end], "?!. "))
	if strings.HasPrefix(lower[start:end], "the ") {
		start += len("the ")
	}

	location := original[start:end]
	if location == "" || temporalWords[lower[start:end]] {
		return ""
	}
	return location
}

// asciiLower lowercases ASCII letters only. Unlike strings.ToLower it never
// changes byte length, so offsets found on the result index the input
// safely. Trigger phrases are all ASCII, so folding beyond ASCII buys
// nothing.
func asciiLower(s string) string {
	hasUpper := false
	for i := 0; i < len(s); i++ {
		if s[i] >= 'A' && s[i] <= 'Z' {
			hasUpper = true
			break
		}
	}
	if !hasUpper {
		return s
	}
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}
