package chat

// Canned replies. The child never sees raw provider output that failed the
// post-filter and never sees a provider failure as an error.
const (
	// RedirectReply answers a blocked incoming message without calling the
	// provider.
	RedirectReply = "Hmm, how about we talk about something else? 🌈"

	// PostFilterReply replaces a provider reply that failed the post-filter.
	PostFilterReply = "How about we chat about something fun instead? What do you like to do? 🎨"

	// FallbackReply covers provider outages after the retry is exhausted.
	FallbackReply = "Oops! I had a little hiccup. Can you try asking me again? 🔄"
)
