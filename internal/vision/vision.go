package vision

import (
	"context"
	"fmt"
	"io"
)

// ResponseFormat selects which reply shape the prompt asks the model for.
type ResponseFormat string

const (
	FormatJSON  ResponseFormat = "json"
	FormatProse ResponseFormat = "prose"
)

// Analyzer sends one food photo to a vision model and returns its raw reply.
type Analyzer interface {
	Analyze(ctx context.Context, r io.Reader, mimeType string) (*AnalysisResult, error)
}

type AnalysisResult struct {
	RawResponse string
	Model       string
}

// APIError is a non-200 reply from a vendor endpoint.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API Error: %d - %s", e.StatusCode, e.Body)
}

// Prompt returns the analysis prompt for format. Unknown formats get the JSON prompt.
func Prompt(format ResponseFormat) string {
	if format == FormatProse {
		return ProsePrompt
	}
	return JSONPrompt
}

// ProsePrompt asks for a line-oriented reply: dish name, description, six
// macro lines, and one portion line.
const ProsePrompt = `You are a skilled nutrition analyst. Please follow these exact instructions for analyzing the food or dish in the image:

1. Identify the dish: based on the visible ingredients, provide the name or best guess for the dish on the first line. Do not say "unsure", just provide the best guess.
2. Provide a short factual description (2-3 sentences) on the second line, including the portion or presentation. If identification is unclear, state: "Please Retake Picture" and stop further analysis.

Estimate calories, carbohydrates, sugars, fiber, protein and fat from the visible portion size and ingredients.
Treat juices, milk, soups, smoothies, yogurt and porridge as liquids.

Format the macronutrient breakdown as:
Calories: xx-xx kcal
Carbohydrates: xx-xx g
Sugars: xx-xx g
Fiber: xx-xx g
Protein: xx-xx g
Fat: xx-xx g

Finish with one single line estimating the portion size and calories of the visible amount, for example: "Looks like ~200-250 kcal, about one medium glass (~250 ml)."

Strict rules:
- No markdown and no extra words.
- Be concise, factual, and clear.
- Do not make health claims or guess the brand.
- Do not invent ingredients or toppings that cannot be seen in the image.
- If you are unsure about the food type, say "May not be right" but continue with your best estimate.`

// JSONPrompt asks for a single JSON object with an "error" escape hatch.
const JSONPrompt = `You are a professional nutrition analyst AI. Analyze the food in the image and return your response in STRICT JSON format.

OUTPUT FORMAT (must be valid JSON):
{
  "dish_name": "Name of the dish or food item",
  "description": "2-3 sentences describing the dish, visible ingredients, and presentation style",
  "nutrition": {
    "calories": "150-180 kcal",
    "carbohydrates": "20-25 g",
    "sugars": "3-5 g",
    "fiber": "2-4 g",
    "protein": "15-20 g",
    "fat": "5-8 g"
  },
  "portion_estimate": "Single serving, approximately 200g, total estimated 300-350 kcal"
}

CRITICAL RULES:
1. ALWAYS return valid JSON - no markdown, no code blocks, no extra text.
2. If food is unclear or image quality is poor, return: {"error": "Please retake picture with better lighting and clear view of food"}
3. Use ranges for all nutritional values (e.g. "150-180" not just "150").
4. Base all estimates on visible food only - do not assume hidden ingredients.
5. Be specific about ingredients you can identify in the image.
6. Include portion size and total calorie estimate in "portion_estimate".
7. For mixed dishes, provide combined nutritional values.
8. If multiple items are visible, analyze them as one complete meal.`
