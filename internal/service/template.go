package service

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/annapurna-labs/annapurna/internal/domain/food"
	"github.com/annapurna-labs/annapurna/internal/matcher"
)

const contentSnippetLimit = 600

// labels holds the fixed answer-section strings per language.
type labels struct {
	DietPlan  string
	Breakfast string
	Lunch     string
	Snack     string
	Dinner    string
	Note      string
	Question  string
	Nutrition string
	Ayurveda  string
	General   string
}

func labelsFor(lang string) labels {
	if lang == "hi" {
		return labels{
			DietPlan:  "आहार योजना",
			Breakfast: "नाश्ता",
			Lunch:     "दोपहर का भोजन",
			Snack:     "स्नैक",
			Dinner:    "रात का खाना",
			Note:      "नोट: भूख और गतिविधि के अनुसार मात्रा समायोजित करें। व्यक्तिगत सलाह के लिए विशेषज्ञ से संपर्क करें।",
			Question:  "प्रश्न",
			Nutrition: "पोषण जानकारी (प्रति 100 ग्राम)",
			Ayurveda:  "आयुर्वेदिक गुण",
			General:   "सामान्य जानकारी",
		}
	}
	return labels{
		DietPlan:  "Diet Plan",
		Breakfast: "Breakfast",
		Lunch:     "Lunch",
		Snack:     "Snack",
		Dinner:    "Dinner",
		Note:      "Note: Adjust portions based on appetite and activity. Consult a professional for personalized advice.",
		Question:  "Question",
		Nutrition: "Nutritional Information (per 100g)",
		Ayurveda:  "Ayurvedic Properties",
		General:   "General Insights",
	}
}

// NoInformationMessage is the fixed reply when neither the knowledge
// base nor enrichment produced anything usable.
func NoInformationMessage(lang string) string {
	if lang == "hi" {
		return "मुझे आपके प्रश्न का सटीक संदर्भ नहीं मिला। आप किसी खाद्य का नाम लिखकर पोषण/आयुर्वेद पूछें, या कैलोरी लक्ष्य देकर डाइट प्लान माँगें।"
	}
	return "I couldn't find a specific match. Ask for nutrition/Ayurvedic properties of a food, or request a diet plan with a calorie target."
}

var devanagariRE = regexp.MustCompile(`[\x{0900}-\x{097F}]`)

func hasDevanagari(s string) bool {
	return devanagariRE.MatchString(s)
}

// TemplatedAnswer assembles an answer directly from ranked matches, with
// no remote call. It is both the LLM fallback and the body shown when
// the LLM is not configured.
func TemplatedAnswer(query string, matches []food.Match, lang string) string {
	if len(matches) == 0 {
		return NoInformationMessage(lang)
	}

	L := labelsFor(lang)
	single := len(matches) == 1

	var lines []string
	lines = append(lines, fmt.Sprintf("%s: %s", L.Question, query))

	for _, m := range dedupeByTitle(matches) {
		rec := m.Record
		lines = append(lines, fmt.Sprintf("\n%s (%s)", rec.Title, food.SourceLocal))
		if !rec.Nutrition.Empty() {
			lines = append(lines, L.Nutrition+":")
			lines = append(lines, nutritionBullets(rec.Nutrition, lang)...)
		}
		if !rec.Ayurveda.Empty() {
			lines = append(lines, L.Ayurveda+":")
			lines = append(lines, ayurvedaBullets(rec.Ayurveda, lang)...)
		}
		if snippet := contentSnippet(rec.Content); snippet != "" {
			// Hindi answers only quote free text that is actually Hindi.
			if lang != "hi" || hasDevanagari(snippet) {
				lines = append(lines, snippet)
			}
		}
	}

	if !single {
		if sections := generalSections(query, lang); len(sections) > 0 {
			lines = append(lines, "\n"+L.General)
			for _, s := range sections {
				lines = append(lines, "- "+s)
			}
		}
	}
	return strings.Join(lines, "\n")
}

func dedupeByTitle(matches []food.Match) []food.Match {
	seen := make(map[string]bool, len(matches))
	out := matches[:0:0]
	for _, m := range matches {
		title := strings.ToLower(strings.TrimSpace(m.Record.Title))
		if title != "" && seen[title] {
			continue
		}
		seen[title] = true
		out = append(out, m)
	}
	return out
}

func nutritionBullets(n food.Nutrition, lang string) []string {
	type field struct {
		en, hi string
		v      *float64
	}
	fields := []field{
		{"Calories", "कैलोरी", n.Calories},
		{"Protein", "प्रोटीन", n.Protein},
		{"Carbs", "कार्ब्स", n.Carbs},
		{"Fats", "वसा", n.Fats},
	}
	var out []string
	for _, f := range fields {
		if f.v == nil {
			continue
		}
		name := f.en
		if lang == "hi" {
			name = f.hi
		}
		out = append(out, fmt.Sprintf("- %s: %s", name, food.FormatValue(*f.v)))
	}
	return out
}

func ayurvedaBullets(a food.Ayurveda, lang string) []string {
	type field struct {
		en, hi, v string
	}
	fields := []field{
		{"Rasa", "रस", a.Rasa},
		{"Virya", "वीर्य", a.Virya},
		{"Guna", "गुण", a.Guna},
		{"Vipaka", "विपाक", a.Vipaka},
		{"Dosha effects", "दोष", a.DoshaEffects},
	}
	var out []string
	for _, f := range fields {
		if f.v == "" {
			continue
		}
		name := f.en
		if lang == "hi" {
			name = f.hi
		}
		out = append(out, fmt.Sprintf("- %s: %s", name, f.v))
	}
	return out
}

func contentSnippet(content string) string {
	content = strings.TrimSpace(content)
	runes := []rune(content)
	if len(runes) > contentSnippetLimit {
		return string(runes[:contentSnippetLimit]) + "..."
	}
	return content
}

func generalSections(query, lang string) []string {
	terms := make(map[string]bool)
	for _, t := range matcher.Tokenize(query) {
		terms[t] = true
	}
	anyOf := func(words ...string) bool {
		for _, w := range words {
			if terms[w] {
				return true
			}
		}
		return false
	}

	var general []string
	if anyOf("dal", "lentil", "pulse", "moong", "toor", "arhar", "chana", "urad", "masoor") {
		if lang == "hi" {
			general = append(general,
				"दालें पौध प्रोटीन और फाइबर का अच्छा स्रोत हैं। भिगोना एंटी-न्यूट्रिएंट्स कम करता है; अंकुरण से विटामिन और पाचन में सुधार होता है। जीरा, अदरक, हींग और हल्दी के साथ पकाना पाचन में सहायक है।",
				"सामान्य मात्रा: प्रति भोजन लगभग 150–200 ग्राम पकी हुई दाल, सब्जियों के साथ लें।")
		} else {
			general = append(general,
				"Lentils are rich in plant protein and fiber. Soaking reduces antinutrients; sprouting improves vitamins and digestibility. Cooking with cumin, ginger, asafoetida, and turmeric supports digestion.",
				"Typical portions: ~150–200 g cooked dal per meal, combine with vegetables.")
		}
	}
	if anyOf("cereal", "grain", "rice", "wheat", "millet", "oats") {
		if lang == "hi" {
			general = append(general,
				"साबुत अनाज जटिल कार्बोहाइड्रेट, फाइबर और बी-विटामिन प्रदान करते हैं। अनाज और दाल साथ लेने से प्रोटीन गुणवत्ता बेहतर होती है।",
				"सामान्य मात्रा: प्रति भोजन ~150–200 ग्राम पका हुआ अनाज, गतिविधि के अनुसार समायोजित करें।")
		} else {
			general = append(general,
				"Whole grains provide complex carbs, fiber, and B-vitamins. Mixing grains with pulses yields more complete protein.",
				"Common portions: ~150–200 g cooked grain per meal, adjust for activity.")
		}
	}
	if anyOf("vegetable", "veg", "greens", "leafy") {
		if lang == "hi" {
			general = append(general, "सब्जियाँ विटामिन, खनिज, एंटीऑक्सिडेंट और फाइबर देती हैं। मौसमी और विविध रंगों को प्राथमिकता दें।")
		} else {
			general = append(general, "Vegetables supply vitamins, minerals, antioxidants, and fiber. Prefer seasonal diversity. Light steaming preserves nutrients.")
		}
	}
	if anyOf("ayurveda", "dosha", "vata", "pitta", "kapha") {
		if lang == "hi" {
			general = append(general, "आयुर्वेद में रस, वीर्य और विपाक के आधार पर दोष संतुलन पर जोर है। वात के लिए गर्म और नम; पित्त के लिए शीतल; कफ के लिए हल्का और गरम खाद्य।")
		} else {
			general = append(general, "Ayurveda balances doshas using rasa, virya, vipaka. Vata often benefits from warm, moist foods; Pitta from cooling, mildly sweet foods; Kapha from light, warming, pungent foods.")
		}
	}
	if anyOf("protein", "carb", "fat", "fiber", "vitamin", "mineral", "glycemic") {
		if lang == "hi" {
			general = append(general, "संतुलित थाली: दाल (प्रोटीन+फाइबर), अनाज (कार्ब), और सब्जियाँ (माइक्रोन्यूट्रिएंट्स)। फाइबर और जल सेवन पर ध्यान दें।")
		} else {
			general = append(general, "Balanced plate: pulse (protein+fiber), grain (carbs), vegetables (micronutrients). Consider fiber and hydration.")
		}
	}
	if len(general) > 0 {
		if lang == "hi" {
			general = append(general, "सामान्य मार्गदर्शन: साबुत खाद्य, पर्याप्त जल, नियमित भोजन समय और विविधता।")
		} else {
			general = append(general, "General guidance: whole foods, hydration, regular meal timing, and variety.")
		}
	}
	return general
}
