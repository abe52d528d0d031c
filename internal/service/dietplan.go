package service

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/annapurna-labs/annapurna/internal/domain/food"
	"github.com/annapurna-labs/annapurna/internal/knowledge"
)

const (
	defaultCalorieTarget = 2000
	minCalorieTarget     = 1000
	maxCalorieTarget     = 3500
)

var (
	dietPlanRE      = regexp.MustCompile(`diet\s*plan|meal\s*plan`)
	calorieTargetRE = regexp.MustCompile(`(\d{3,4})\s*(kcal|cal|calories)?`)
	avoidRE         = regexp.MustCompile(`avoid\s+([a-z\x{0900}-\x{097F}]+)`)
)

// IsDietPlanQuery reports whether the message asks for a meal plan.
func IsDietPlanQuery(query string) bool {
	q := strings.ToLower(query)
	if dietPlanRE.MatchString(q) {
		return true
	}
	return strings.Contains(q, "diet") && strings.Contains(q, "plan")
}

// preferences are dietary constraints parsed from the query.
type preferences struct {
	Vegetarian bool
	Avoid      []string
}

func parseCalorieTarget(query string) int {
	m := calorieTargetRE.FindStringSubmatch(strings.ToLower(query))
	if m != nil {
		if v, err := strconv.Atoi(m[1]); err == nil && v >= minCalorieTarget && v <= maxCalorieTarget {
			return v
		}
	}
	return defaultCalorieTarget
}

func parsePreferences(query string) preferences {
	q := strings.ToLower(query)
	p := preferences{
		Vegetarian: strings.Contains(q, "vegetarian") || strings.Contains(q, "vegan"),
	}
	for _, m := range avoidRE.FindAllStringSubmatch(q, -1) {
		p.Avoid = append(p.Avoid, m[1])
	}
	return p
}

// Meal calorie shares: breakfast, lunch, snack, dinner.
var mealShares = []float64{0.25, 0.35, 0.15, 0.25}

func mealLabels(L labels) []string {
	return []string{L.Breakfast, L.Lunch, L.Snack, L.Dinner}
}

// DietPlan builds a four-meal plan around a calorie target, picking
// items from the food groups and scaling gram portions from per-100g
// calories.
func DietPlan(query string, groups knowledge.Groups, lang string) string {
	target := parseCalorieTarget(query)
	prefs := parsePreferences(query)
	L := labelsFor(lang)

	var lines []string
	lines = append(lines, fmt.Sprintf("%s (~%d kcal)", L.DietPlan, target))

	names := mealLabels(L)
	for i, share := range mealShares {
		mealTarget := int(float64(target) * share)
		lines = append(lines, fmt.Sprintf("\n%s (~%d kcal)", names[i], mealTarget))

		chosen := pickMealItems(i, groups)
		if len(chosen) > 3 {
			chosen = chosen[:3]
		}

		var kept []*food.Record
		for _, rec := range chosen {
			if !avoided(rec.Title, prefs.Avoid) {
				kept = append(kept, rec)
			}
		}

		if len(kept) == 0 {
			if lang == "hi" {
				lines = append(lines, "- दाल और अनाज को सब्जियों के साथ मिलाएँ")
			} else {
				lines = append(lines, "- Choose mixed dal and cereals with vegetables")
			}
			continue
		}

		perItem := float64(mealTarget) / float64(len(kept))
		for _, rec := range kept {
			grams := int(perItem / caloriesOrDefault(rec) * 100)
			lines = append(lines, fmt.Sprintf("- %s: ~%d g", rec.Title, grams))
			lines = append(lines, mealDetail(rec, lang)...)
		}
	}

	lines = append(lines, "\n"+L.Note)
	return strings.Join(lines, "\n")
}

// pickMealItems selects candidate records for the i-th meal. Breakfast
// and dinner pair a cereal with a pulse, lunch adds a vegetable, the
// snack is vegetable-only with a cereal fallback.
func pickMealItems(meal int, groups knowledge.Groups) []*food.Record {
	cereal := firstWithCalories(groups.Cereals)
	pulse := firstWithCalories(groups.Pulses)
	vegetable := firstWithCalories(groups.Vegetables)

	var chosen []*food.Record
	switch meal {
	case 1: // lunch
		chosen = compact(cereal, pulse, vegetable)
	case 2: // snack
		chosen = compact(vegetable)
		if len(chosen) == 0 {
			chosen = compact(cereal)
		}
	default: // breakfast, dinner
		chosen = compact(cereal, pulse)
	}
	return chosen
}

func firstWithCalories(records []*food.Record) *food.Record {
	for _, r := range records {
		if r.Nutrition.Calories != nil && *r.Nutrition.Calories > 0 {
			return r
		}
	}
	if len(records) > 0 {
		return records[0]
	}
	return nil
}

func compact(records ...*food.Record) []*food.Record {
	var out []*food.Record
	for _, r := range records {
		if r != nil {
			out = append(out, r)
		}
	}
	return out
}

func caloriesOrDefault(rec *food.Record) float64 {
	if rec.Nutrition.Calories != nil && *rec.Nutrition.Calories > 0 {
		return *rec.Nutrition.Calories
	}
	return 100.0
}

func avoided(title string, avoid []string) bool {
	t := strings.ToLower(title)
	for _, a := range avoid {
		if a != "" && strings.Contains(t, a) {
			return true
		}
	}
	return false
}

// mealDetail renders the nutrition and ayurveda bullet for one plan item.
func mealDetail(rec *food.Record, lang string) []string {
	var out []string

	per100 := "per 100g"
	if lang == "hi" {
		per100 = "प्रति 100 ग्राम"
	}
	var nut []string
	type nf struct {
		en, hi string
		v      *float64
	}
	for _, f := range []nf{
		{"Protein", "प्रोटीन", rec.Nutrition.Protein},
		{"Carbs", "कार्ब्स", rec.Nutrition.Carbs},
		{"Fats", "वसा", rec.Nutrition.Fats},
	} {
		if f.v == nil {
			continue
		}
		name := f.en
		if lang == "hi" {
			name = f.hi
		}
		nut = append(nut, fmt.Sprintf("%s %s %s", name, food.FormatValue(*f.v), per100))
	}
	if len(nut) > 0 {
		out = append(out, "  • "+strings.Join(nut, ", "))
	}

	var props []string
	type af struct {
		en, hi, v string
	}
	for _, f := range []af{
		{"Rasa", "रस", rec.Ayurveda.Rasa},
		{"Virya", "वीर्य", rec.Ayurveda.Virya},
		{"Vipaka", "विपाक", rec.Ayurveda.Vipaka},
		{"Dosha", "दोष", rec.Ayurveda.DoshaEffects},
	} {
		if f.v == "" {
			continue
		}
		name := f.en
		if lang == "hi" {
			name = f.hi
		}
		props = append(props, fmt.Sprintf("%s: %s", name, f.v))
	}
	if len(props) > 0 {
		out = append(out, "  • "+strings.Join(props, ", "))
	}
	return out
}
