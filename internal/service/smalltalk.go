package service

import (
	"strings"

	"github.com/annapurna-labs/annapurna/internal/matcher"
)

// Smalltalk answers greetings, thanks, goodbyes, and capability
// questions without touching the matching pipeline. It returns ok=false
// when the message is not smalltalk.
func Smalltalk(query, lang string) (string, bool) {
	q := strings.ToLower(strings.TrimSpace(query))
	tokens := make(map[string]bool)
	for _, t := range matcher.Tokenize(q) {
		tokens[t] = true
	}
	hindi := lang == "hi"

	// Single words match whole tokens only; phrases match as substrings.
	hit := func(words ...string) bool {
		for _, w := range words {
			if strings.Contains(w, " ") {
				if strings.Contains(q, w) {
					return true
				}
			} else if tokens[w] {
				return true
			}
		}
		return false
	}

	switch {
	case hit("hi", "hello", "hey", "namaste", "नमस्ते", "नमस्कार"):
		if hindi {
			return "नमस्ते! मैं आपके पोषण और आयुर्वेद संबंधित प्रश्नों में मदद कर सकता हूँ। आप किसी दाल/अनाज/सब्जी के पोषण या आयुर्वेदिक गुण पूछ सकते हैं, या कैलोरी लक्ष्य के साथ डाइट प्लान माँग सकते हैं।", true
		}
		return "Hello! I can help with nutrition and Ayurveda questions. Ask about nutrition or Ayurvedic properties of lentils/grains/vegetables, or request a diet plan with a calorie target.", true
	case hit("thanks", "thank you", "धन्यवाद"):
		if hindi {
			return "आपका स्वागत है!", true
		}
		return "You're welcome!", true
	case hit("bye", "goodbye", "see you", "अलविदा"):
		if hindi {
			return "धन्यवाद! फिर मिलेंगे।", true
		}
		return "Thanks! See you again.", true
	case hit("who are you", "about you", "तुम कौन हो", "आप कौन हैं"):
		if hindi {
			return "मैं पोषण और आयुर्वेद सहायक हूँ। मैं अपने ज्ञान-आधार से जानकारी देता हूँ और आपकी पसंद के आधार पर सीखता रहता हूँ।", true
		}
		return "I'm a Nutrition & Ayurveda Assistant, answering from a curated knowledge base and learning from your preferences.", true
	case hit("help", "what can you do", "capabilities", "सहायता", "मदद"):
		if hindi {
			return "मैं आपके लिए ये कर सकता हूँ:\n- किसी खाद्य पदार्थ के पोषण/आयुर्वेदिक गुण बताना\n- पित्त/वात/कफ संतुलन के अनुसार सुझाव\n- 2000 kcal जैसा लक्ष्य देकर डाइट प्लान बनाना\nउदाहरण: \"मूंग दाल nutrition\", \"pitta balancing foods\", \"diet plan 2200 vegetarian\"", true
		}
		return "I can help you with:\n- Nutrition/Ayurvedic properties of foods\n- Vata/Pitta/Kapha balancing suggestions\n- Diet plans with calorie targets (e.g., 2000 kcal)\nExamples: \"moong dal nutrition\", \"pitta balancing foods\", \"diet plan 2200 vegetarian\"", true
	}
	return "", false
}
