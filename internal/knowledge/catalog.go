package knowledge

// defaultCatalog is the built-in product knowledge base.
//
// Order matters: within each matching tier the first entry wins, so more
// specific entries come before broader ones. The catalog is read-only after
// init; do not append to it at runtime.
var defaultCatalog = []Entry{
	{
		ID:       "creator",
		Question: "Who created you",
		Aliases: []string{
			"who made you",
			"who built you",
			"who developed you",
			"who is your creator",
			"who is behind parley",
		},
		Keywords: []string{"koopa0"},
		Answer:   "I was created by Koopa0, the developer behind Parley. Parley is an open AI chat assistant that combines conversation, web search, weather lookup, and image generation in one place.",
	},
	{
		ID:       "what-is-parley",
		Question: "What is Parley",
		Aliases: []string{
			"tell me about parley",
			"what does parley do",
			"about this app",
			"what are you",
		},
		Entities: []string{"parley"},
		Answer:   "Parley is an AI chat assistant. You can chat normally, attach images for analysis, ask for the current weather in any city, generate images from a description, and (when enabled) get answers grounded in live web search results.",
	},
	{
		ID:       "capabilities",
		Question: "What can you do",
		Aliases: []string{
			"what can you help me with",
			"list your features",
			"what are your capabilities",
			"help me get started",
		},
		Answer: "I can help with general questions and conversation, analyze images you attach, look up current weather (try \"weather in Tokyo\"), generate images (try \"generate an image of a lighthouse at dawn\"), and search the web for recent information when web search is enabled.",
	},
	{
		ID:       "pricing",
		Question: "Is Parley free",
		Aliases: []string{
			"how much does it cost",
			"pricing",
			"do i have to pay",
			"what is premium",
		},
		Keywords: []string{"subscription", "upgrade to premium"},
		Answer:   "Parley has a free tier with a per-conversation message limit and a premium tier with unlimited messages. When the free limit is reached you'll be prompted to upgrade.",
	},
	{
		ID:       "privacy",
		Question: "Is my data private",
		Aliases: []string{
			"what happens to my data",
			"do you store my messages",
			"privacy policy",
		},
		Answer: "Your conversations are stored in your own account so you can revisit them, and are never shared with other users. Messages sent to model providers are subject to those providers' data policies.",
	},
	{
		ID:       "contact",
		Question: "How do I report a problem",
		Aliases: []string{
			"contact support",
			"report a bug",
			"give feedback",
		},
		Answer: "You can report problems or send feedback through the issue tracker on the Parley repository. Include the conversation session id if the problem is about a specific chat.",
	},
}
