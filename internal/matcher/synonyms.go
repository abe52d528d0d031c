package matcher

// synonyms maps a query term to related terms that earn partial credit.
// The table bridges regional names and English equivalents for the
// pulses and grains the knowledge base covers most densely.
var synonyms = map[string][]string{
	"dal":    {"lentil", "pulse", "moong", "mung", "toor", "tur", "arhar", "chana", "urad", "masoor", "pigeon", "pea"},
	"lentil": {"dal", "pulse", "moong", "mung", "masoor", "urad", "chana"},
	"pulse":  {"dal", "lentil"},
	"moong":  {"mung", "green", "gram"},
	"mung":   {"moong"},
	"toor":   {"tur", "pigeon", "pea", "arhar"},
	"tur":    {"toor", "arhar"},
	"arhar":  {"toor", "tur", "pigeon", "pea"},
	"chana":  {"chickpea", "gram"},
	"urad":   {"black", "gram"},
	"masoor": {"red", "lentil"},
	"मूंग":   {"moong", "mung"},
	"तूर":    {"toor", "tur"},
	"अरहर":   {"arhar", "toor"},
	"चना":    {"chana"},
	"उड़द":    {"urad"},
	"मसूर":   {"masoor"},
	"दाल":    {"dal"},
	"चावल":   {"rice"},
	"गेहूं":   {"wheat"},
	"पालक":   {"spinach"},
}

// signalTerms are nutrient or property words that mark a query as asking
// about one specific food rather than a broad topic.
var signalTerms = map[string]struct{}{
	"nutrition": {}, "calories": {}, "ayurveda": {}, "protein": {},
	"carbs": {}, "fats": {}, "rasa": {}, "virya": {}, "guna": {}, "vipaka": {},
}

// productTerms name specific pulses; their presence alone narrows a
// query to a single item.
var productTerms = map[string]struct{}{
	"toor": {}, "tur": {}, "arhar": {}, "moong": {}, "mung": {},
	"urad": {}, "chana": {}, "masoor": {},
	"तूर": {}, "अरहर": {}, "मूंग": {}, "उड़द": {}, "चना": {}, "मसूर": {},
}
