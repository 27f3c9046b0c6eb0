package router

// Trigger catalogs for the rule tiers. These are fixed at process start and
// read-only thereafter; within a tier, the first listed trigger wins.

// imagePrefixTriggers are imperative image-generation phrases matched at the
// start of the message. The phrase itself is stripped from the routed prompt.
var imagePrefixTriggers = []string{
	"generate an image of ",
	"generate a picture of ",
	"create an image of ",
	"create a picture of ",
	"show me an image of ",
	"show me a picture of ",
	"make a picture of ",
	"make an image of ",
	"draw me ",
	"draw ",
	// bare-command forms with no prompt yet
	"generate an image",
	"create an image",
	"make a picture",
}

// imageInfixTriggers match anywhere in the message; the prompt is the text
// following the phrase.
var imageInfixTriggers = []string{
	"image of ",
	"picture of ",
}

// weatherPrefixTriggers are weather-query openings. Location extraction is
// shared across all of them (see extractLocation).
var weatherPrefixTriggers = []string{
	"what is the weather",
	"what's the weather",
	"whats the weather",
	"how is the weather",
	"how's the weather",
	"weather in ",
	"weather for ",
	"temperature in ",
	"forecast for ",
	"weather forecast",
	"weather",
}

// temporalWords are remainders that name a time, not a place. A weather
// query that resolves to one of these has no usable location.
var temporalWords = map[string]bool{
	"today":        true,
	"now":          true,
	"right now":    true,
	"tomorrow":     true,
	"tonight":      true,
	"this morning": true,
	"this week":    true,
	"outside":      true,
	"like":         true,
	"here":         true,
}

// searchTriggers are substrings that signal search intent. Only consulted
// when the web-search capability flag is enabled.
var searchTriggers = []string{
	"search the web for ",
	"search for ",
	"search the internet",
	"look up ",
	"google ",
	"latest",
	"today's news",
	"current news",
	"recent news",
	"breaking news",
	"how to ",
	"who is ",
	"who was ",
	"what happened",
	"current price",
	"stock price",
	"score of",
	"right now",
}
