// Package meal turns a photo or description of a meal into logged macros,
// answering from the meal history when a description was seen before.
package meal

import (
	"context"
	"fmt"
	"strings"

	charmlog "github.com/charmbracelet/log"
	"github.com/gabriel-vasile/mimetype"

	"nutrirag/internal/domain"
)

// Source tells where a Result came from.
type Source string

const (
	SourceCache Source = "cache"
	SourceModel Source = "model"
)

// Request carries the user's input. At least one field must be set.
type Request struct {
	Image       []byte
	Description string
}

// Result is the analysis returned to the caller.
type Result struct {
	FoodName string
	Protein  float64
	Carbs    float64
	Fats     float64
	Advice   string
	Source   Source
	// RecordID is the id of the row written for a model analysis; 0 on cache hits.
	RecordID int64
}

// History is the meal log the analyzer reads from and appends to.
type History interface {
	Lookup(ctx context.Context, description string) (domain.CachedMeal, bool, error)
	Save(ctx context.Context, rec domain.MealRecord) (domain.MealRecord, error)
}

type Analyzer struct {
	generator domain.Generator
	history   History
	log       *charmlog.Logger
}

func NewAnalyzer(generator domain.Generator, history History, log *charmlog.Logger) *Analyzer {
	return &Analyzer{generator: generator, history: history, log: log}
}

// Analyze runs the cache-then-model flow. The cache is only consulted for
// text-only requests. A model failure returns the error and records nothing.
func (a *Analyzer) Analyze(ctx context.Context, req Request) (Result, error) {
	desc := strings.TrimSpace(req.Description)
	if len(req.Image) == 0 && desc == "" {
		return Result{}, domain.ErrInputMissing
	}

	if len(req.Image) == 0 {
		hit, ok, err := a.history.Lookup(ctx, desc)
		if err != nil {
			return Result{}, fmt.Errorf("analyze: %w", err)
		}
		if ok {
			a.log.Debug("meal cache hit", "description", desc)
			return Result{
				FoodName: desc,
				Protein:  hit.Protein,
				Carbs:    hit.Carbs,
				Fats:     hit.Fats,
				Advice:   hit.Advice,
				Source:   SourceCache,
			}, nil
		}
	}

	parts := make([]domain.Part, 0, 2)
	if len(req.Image) > 0 {
		mime := mimetype.Detect(req.Image)
		if !strings.HasPrefix(mime.String(), "image/") {
			return Result{}, fmt.Errorf("analyze: %w: detected %s", domain.ErrUnsupportedImage, mime.String())
		}
		parts = append(parts, domain.ImagePart(mime.String(), req.Image))
	}
	parts = append(parts, domain.TextPart(BuildPrompt(desc)))

	a.log.Debug("analyzing meal", "model", a.generator.Name(), "image", len(req.Image) > 0)
	reply, err := a.generator.Generate(ctx, parts...)
	if err != nil {
		return Result{}, fmt.Errorf("analyze: %w", err)
	}
	an := Parse(reply)

	food := desc
	if food == "" {
		food = an.FoodName
	}
	rec, err := a.history.Save(ctx, domain.MealRecord{
		Food:    food,
		Protein: an.Protein,
		Carbs:   an.Carbs,
		Fats:    an.Fats,
		Advice:  an.Advice,
	})
	if err != nil {
		return Result{}, fmt.Errorf("analyze: %w", err)
	}
	return Result{
		FoodName: an.FoodName,
		Protein:  an.Protein,
		Carbs:    an.Carbs,
		Fats:     an.Fats,
		Advice:   an.Advice,
		Source:   SourceModel,
		RecordID: rec.ID,
	}, nil
}

// BuildPrompt asks for the five labeled fields Parse understands. An empty
// description refers to the attached image.
func BuildPrompt(description string) string {
	subject := description
	if subject == "" {
		subject = "the food in the image"
	}
	return "Analyze this food: " + subject + ".\n" +
		"Return ONLY the following labels and values. Do not include introductory text.\n" +
		"NAME: [Brief name of food]\n" +
		"PROTEIN: [number only]\n" +
		"CARBS: [number only]\n" +
		"FATS: [number only]\n" +
		"ADVICE: [One short coaching tip]\n"
}
