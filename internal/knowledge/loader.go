package knowledge

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/annapurna-labs/annapurna/internal/domain/food"
)

// Load reads the knowledge base CSV at path and returns a frozen Store.
// The dataset's bilingual headers ("Food Item (खाद्य पदार्थ)",
// "Calories (per 100g)", ...) are matched on their English stem, so both
// the published dataset and plain canonical headers load unchanged.
func Load(path string) (*Store, error) {
	f, err := os.Open(path) //nolint:gosec // G304: path comes from validated config
	if err != nil {
		return nil, fmt.Errorf("open knowledge base: %w", err)
	}
	defer func() { _ = f.Close() }()

	store, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return store, nil
}

// Parse reads CSV rows from r into a Store. Rows without a title are
// skipped; a malformed numeric field fails the load so bad datasets are
// caught at startup rather than at answer time.
func Parse(r io.Reader) (*Store, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols := mapColumns(header)
	if _, ok := cols["title"]; !ok {
		return nil, fmt.Errorf("no title column in header %v", header)
	}

	var records []*food.Record
	line := 1
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		rec, err := rowToRecord(cols, row)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if rec != nil {
			records = append(records, rec)
		}
	}

	return NewStore(records)
}

// columnAliases maps header stems to canonical field names.
var columnAliases = map[string]string{
	"id":            "id",
	"title":         "title",
	"food item":     "title",
	"category":      "category",
	"content":       "content",
	"notes":         "content",
	"calories":      "calories",
	"protein":       "protein",
	"carbs":         "carbs",
	"fats":          "fats",
	"rasa":          "rasa",
	"virya":         "virya",
	"guna":          "guna",
	"vipaka":        "vipaka",
	"suitable for":  "dosha",
	"dosha":         "dosha",
	"dosha effects": "dosha",
}

// mapColumns resolves each header cell to a canonical field index.
func mapColumns(header []string) map[string]int {
	cols := make(map[string]int)
	for i, h := range header {
		stem := headerStem(h)
		for alias, field := range columnAliases {
			if strings.HasPrefix(stem, alias) {
				if _, taken := cols[field]; !taken {
					cols[field] = i
				}
				break
			}
		}
	}
	return cols
}

// headerStem lowercases a header and drops any parenthesized suffix,
// e.g. "Rasa (Taste) (रस)" -> "rasa".
func headerStem(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	if i := strings.IndexByte(h, '('); i >= 0 {
		h = strings.TrimSpace(h[:i])
	}
	return h
}

func rowToRecord(cols map[string]int, row []string) (*food.Record, error) {
	get := func(field string) string {
		i, ok := cols[field]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	title := get("title")
	if title == "" {
		return nil, nil // skip blank rows
	}

	rec := &food.Record{
		ID:       get("id"),
		Title:    title,
		Category: food.Category(get("category")),
		Content:  get("content"),
		Ayurveda: food.Ayurveda{
			Rasa:         get("rasa"),
			Virya:        get("virya"),
			Guna:         get("guna"),
			Vipaka:       get("vipaka"),
			DoshaEffects: get("dosha"),
		},
	}
	if rec.ID == "" {
		rec.ID = slugify(title)
	}

	var err error
	if rec.Nutrition.Calories, err = parseOptFloat(get("calories")); err != nil {
		return nil, fmt.Errorf("calories: %w", err)
	}
	if rec.Nutrition.Protein, err = parseOptFloat(get("protein")); err != nil {
		return nil, fmt.Errorf("protein: %w", err)
	}
	if rec.Nutrition.Carbs, err = parseOptFloat(get("carbs")); err != nil {
		return nil, fmt.Errorf("carbs: %w", err)
	}
	if rec.Nutrition.Fats, err = parseOptFloat(get("fats")); err != nil {
		return nil, fmt.Errorf("fats: %w", err)
	}

	if rec.Content == "" {
		rec.Content = describe(rec)
	}
	return rec, nil
}

// parseOptFloat parses a numeric cell, tolerating unit suffixes like
// "347 kcal" or "24.5 g". Empty cells mean absent, not zero.
func parseOptFloat(s string) (*float64, error) {
	if s == "" {
		return nil, nil
	}
	if i := strings.IndexByte(s, ' '); i > 0 {
		s = s[:i]
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("parse %q: %w", s, err)
	}
	return &v, nil
}

// slugify derives a stable record ID from the title, keeping only the
// Latin portion so "Moong Dal (मूंग दाल)" becomes "moong-dal".
func slugify(title string) string {
	var b strings.Builder
	prevDash := true
	for _, c := range strings.ToLower(title) {
		switch {
		case c >= 'a' && c <= 'z' || c >= '0' && c <= '9':
			b.WriteRune(c)
			prevDash = false
		case !prevDash:
			b.WriteByte('-')
			prevDash = true
		}
	}
	return strings.Trim(b.String(), "-")
}

// describe builds a compact content snippet for records that carry only
// structured fields, mirroring how the dataset itself phrases them.
func describe(r *food.Record) string {
	var parts []string
	if !r.Nutrition.Empty() {
		var n []string
		if r.Nutrition.Calories != nil {
			n = append(n, "Calories: "+food.FormatValue(*r.Nutrition.Calories))
		}
		if r.Nutrition.Protein != nil {
			n = append(n, "Protein: "+food.FormatValue(*r.Nutrition.Protein))
		}
		if r.Nutrition.Carbs != nil {
			n = append(n, "Carbs: "+food.FormatValue(*r.Nutrition.Carbs))
		}
		if r.Nutrition.Fats != nil {
			n = append(n, "Fats: "+food.FormatValue(*r.Nutrition.Fats))
		}
		parts = append(parts, "Nutritional (per 100g): "+strings.Join(n, ", "))
	}
	if !r.Ayurveda.Empty() {
		var a []string
		if r.Ayurveda.Rasa != "" {
			a = append(a, "Rasa: "+r.Ayurveda.Rasa)
		}
		if r.Ayurveda.Virya != "" {
			a = append(a, "Virya: "+r.Ayurveda.Virya)
		}
		if r.Ayurveda.Guna != "" {
			a = append(a, "Guna: "+r.Ayurveda.Guna)
		}
		if r.Ayurveda.Vipaka != "" {
			a = append(a, "Vipaka: "+r.Ayurveda.Vipaka)
		}
		if r.Ayurveda.DoshaEffects != "" {
			a = append(a, "Dosha effects: "+r.Ayurveda.DoshaEffects)
		}
		parts = append(parts, "Ayurvedic: "+strings.Join(a, ", "))
	}
	return strings.Join(parts, "\n")
}
