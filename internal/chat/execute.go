package chat

import (
	"context"
	"errors"
	"fmt"

	"github.com/koopa0/parley/internal/adapter/imagegen"
	"github.com/koopa0/parley/internal/adapter/model"
	"github.com/koopa0/parley/internal/adapter/websearch"
	"github.com/koopa0/parley/internal/conversation"
	"github.com/koopa0/parley/internal/router"
)

// execute runs the routed capability and always produces an assistant
// turn. Execution failures become assistant-facing error text, never
// errors: the conversation records what happened.
func (c *Controller) execute(ctx context.Context, d router.Decision, text string,
	imageBytes []byte, imageMIME string, history []model.Turn) conversation.Message {

	out := conversation.Message{Sender: conversation.SenderAssistant}

	switch d.Capability {
	case router.CapabilityKnowledgeBase:
		out.Text = d.Answer

	case router.CapabilityVisionChat:
		reply, err := c.model.CompleteWithImage(ctx, visionSystemInstruction, history, text, imageBytes, imageMIME)
		if err != nil {
			c.logger.Warn("vision completion failed", "error", err)
			out.Text = friendlyError(err)
			break
		}
		out.Text = reply

	case router.CapabilityImageGeneration:
		if d.ParameterMissing {
			out.Text = "What should the image show? Describe the scene and I'll generate it."
			break
		}
		url, err := c.imagegen.Generate(ctx, d.Parameter)
		if err != nil {
			c.logger.Warn("image generation failed", "prompt", d.Parameter, "error", err)
			out.Text = imageGenError(err)
			break
		}
		out.Text = fmt.Sprintf("Here's your image: %s", d.Parameter)
		out.ImageData = url

	case router.CapabilityWeather:
		if d.ParameterMissing {
			out.Text = "Which location would you like the weather for?"
			break
		}
		report, err := c.weather.Current(ctx, d.Parameter)
		if err != nil {
			c.logger.Warn("weather lookup failed", "location", d.Parameter, "error", err)
			out.Text = friendlyError(err)
			break
		}
		out.Text = report.Format()

	case router.CapabilityWebSearchChat:
		out = c.executeSearchChat(ctx, text, history)

	default:
		reply, err := c.model.Complete(ctx, chatSystemInstruction, history, text)
		if err != nil {
			c.logger.Warn("chat completion failed", "error", err)
			out.Text = friendlyError(err)
			break
		}
		out.Text = reply
	}

	return out
}

// executeSearchChat runs the web-search pre-step and answers over the
// results. A failed or empty search degrades to plain chat; the resulting
// turn is marked degraded so the client can surface it.
func (c *Controller) executeSearchChat(ctx context.Context, text string, history []model.Turn) conversation.Message {
	out := conversation.Message{Sender: conversation.SenderAssistant}

	results, err := c.search.Search(ctx, text)
	if err != nil {
		if !errors.Is(err, websearch.ErrNoResults) {
			c.logger.Warn("web search failed, answering without results", "error", err)
		}
		reply, cerr := c.model.Complete(ctx, chatSystemInstruction, history, text)
		if cerr != nil {
			c.logger.Warn("chat completion failed", "error", cerr)
			out.Text = friendlyError(cerr)
			return out
		}
		out.Text = reply
		out.Degraded = true
		return out
	}

	instruction := chatSystemInstruction + "\n\n" + websearch.BuildContext(text, results) +
		"\nUse the results above where relevant when answering."
	reply, err := c.model.Complete(ctx, instruction, history, text)
	if err != nil {
		c.logger.Warn("chat completion failed", "error", err)
		out.Text = friendlyError(err)
		return out
	}
	out.Text = reply
	return out
}

// imageGenError picks assistant-facing text for an image generation
// failure, distinguishing a timeout from a reported failure.
func imageGenError(err error) string {
	switch {
	case errors.Is(err, imagegen.ErrTimeout):
		return "Image generation is taking longer than expected. Please try again shortly."
	case errors.Is(err, imagegen.ErrGenerationFailed):
		return "I couldn't generate that image. Try rephrasing the description."
	default:
		return friendlyError(err)
	}
}
