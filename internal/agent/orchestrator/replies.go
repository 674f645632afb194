package orchestrator

import "strings"

const (
	greetingReply = `Hello! 👋 Welcome to Jio AI Assistant!

I can help you with:
• 📱 Mobile Plans (₹199, ₹299, ₹399, ₹599)
• 🏠 JioFiber Broadband (₹699, ₹999, ₹1499)
• 🚀 5G Services (Free with all plans!)
• 💰 Personalized recommendations

What would you like to know today?`

	thanksReply = "You're welcome! 😊 Feel free to ask if you need any more information about Jio plans or services!"

	goodbyeReply = "Goodbye! 👋 Thank you for choosing Jio. Have a great day!"

	// FallbackResponse is returned whenever generation fails.
	FallbackResponse = `I apologize for the inconvenience. Let me provide you with our popular plans:

📱 **Mobile Plans:**
• ₹199 - 1.5GB/day for 28 days
• ₹299 - 2GB/day for 28 days
• ₹399 - 3GB/day for 56 days (Best Value!)
• ₹599 - 3GB/day for 84 days

🏠 **JioFiber:**
• ₹699 - 30 Mbps
• ₹999 - 100 Mbps with OTT apps
• ₹1499 - 300 Mbps with Netflix & Prime

All plans include unlimited calls and free 5G!

Please try rephrasing your question or ask about specific plans!`
)

var (
	goodbyeSet = map[string]struct{}{"bye": {}, "goodbye": {}}
)

// cannedReply picks the fixed reply for a query classified as simple.
// Goodbyes are checked before greetings so "goodbye" is not read as "good ...".
func cannedReply(query string) string {
	q := normalize(query)
	if _, ok := goodbyeSet[q]; ok {
		return goodbyeReply
	}
	if _, ok := greetingSet[q]; ok {
		return greetingReply
	}
	if _, ok := acknowledgementSet[q]; ok {
		return thanksReply
	}
	if strings.Contains(q, "bye") {
		return goodbyeReply
	}
	return greetingReply
}
