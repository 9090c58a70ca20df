package meal

import (
	"regexp"
	"strconv"
	"strings"
)

const (
	DefaultFoodName = "Unknown Food"
	DefaultAdvice   = "Stay healthy!"
)

// Each field is matched on its own so one malformed line only costs that field.
var (
	nameRe    = regexp.MustCompile(`(?i)NAME:\**\s*(.*)`)
	proteinRe = regexp.MustCompile(`(?i)PROTEIN:\**\s*([\d.]+)`)
	carbsRe   = regexp.MustCompile(`(?i)CARBS:\**\s*([\d.]+)`)
	fatsRe    = regexp.MustCompile(`(?i)FATS:\**\s*([\d.]+)`)
	adviceRe  = regexp.MustCompile(`(?i)ADVICE:\**\s*(.*)`)
)

// Analysis is the structured content of a model reply.
type Analysis struct {
	FoodName string
	Protein  float64
	Carbs    float64
	Fats     float64
	Advice   string
}

// Parse extracts the labeled fields from a model reply. It never fails:
// missing or unreadable fields fall back to their defaults.
func Parse(reply string) Analysis {
	return Analysis{
		FoodName: text(nameRe, reply, DefaultFoodName),
		Protein:  number(proteinRe, reply),
		Carbs:    number(carbsRe, reply),
		Fats:     number(fatsRe, reply),
		Advice:   text(adviceRe, reply, DefaultAdvice),
	}
}

func text(re *regexp.Regexp, s, fallback string) string {
	m := re.FindStringSubmatch(s)
	if m == nil {
		return fallback
	}
	v := strings.TrimSpace(strings.Trim(strings.TrimSpace(m[1]), "*"))
	if v == "" {
		return fallback
	}
	return v
}

func number(re *regexp.Regexp, s string) float64 {
	m := re.FindStringSubmatch(s)
	if m == nil {
		return 0
	}
	// "12." is fine; "1.2.3" or a lone "." is not a number.
	v, err := strconv.ParseFloat(strings.TrimRight(m[1], "."), 64)
	if err != nil {
		return 0
	}
	return v
}
