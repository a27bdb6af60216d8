package vision

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"

	"smart-nutrition/internal/shared"
)

var (
	ErrEmptyImage       = errors.New("empty image file")
	ErrUnsupportedImage = errors.New("unsupported image type")
	ErrNoContent        = errors.New("no content generated")
)

// DetectedFood is one item the model saw on the plate.
type DetectedFood struct {
	Name           string  `json:"name"`
	EstimatedGrams int     `json:"estimated_grams"`
	Preparation    string  `json:"preparation"`
	Confidence     float64 `json:"confidence"`
}

// UnmarshalJSON accepts estimated_grams as an integer, a float or a numeric
// string, rounding to whole grams.
func (d *DetectedFood) UnmarshalJSON(data []byte) error {
	type plain DetectedFood
	var raw struct {
		plain
		EstimatedGrams json.RawMessage `json:"estimated_grams"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	grams, err := parseGrams(raw.EstimatedGrams)
	if err != nil {
		return err
	}
	*d = DetectedFood(raw.plain)
	d.EstimatedGrams = grams
	return nil
}

func parseGrams(raw json.RawMessage) (int, error) {
	v := strings.TrimSpace(string(raw))
	if v == "" || v == "null" {
		return 0, nil
	}
	if strings.HasPrefix(v, `"`) {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, err
		}
		v = strings.TrimSpace(s)
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("invalid estimated_grams %s", raw)
	}
	return int(math.Round(f)), nil
}

// Analysis is the structured answer of a vision model.
type Analysis struct {
	Foods           []DetectedFood `json:"foods"`
	MealDescription string         `json:"meal_description"`
}

// Result is an Analysis plus what the call cost.
type Result struct {
	Analysis Analysis
	Meta     shared.CallMeta
}

// Analyzer detects foods and portion sizes in a photo.
type Analyzer interface {
	Analyze(ctx context.Context, image []byte, mimeType string) (Result, error)
}

// Closer is implemented by analyzers holding a client that must be released.
type Closer interface {
	Close() error
}

// Component is the name metrics are recorded under.
const Component = "food-vision"

// Prompt asks for portions in Latin American standard servings and a strict
// JSON answer.
const Prompt = `Eres un nutricionista profesional con amplio conocimiento en porciones estándar latinoamericanas.
Analiza esta imagen de comida siguiendo ESTRICTAMENTE este proceso paso a paso.

## PASO 1: Identificar Referencias de Tamaño
- Observa el plato, recipiente o cubiertos visibles
- Un plato estándar mide ~26cm de diámetro
- Un vaso estándar contiene ~250ml
- Una cuchara sopera contiene ~15ml

## PASO 2: Identificar Cada Alimento
- Nombra cada alimento en español
- Si es un plato peruano (ceviche, lomo saltado, ají de gallina, arroz con pollo, etc.), nómbralo correctamente
- Especifica la preparación (cocido, frito, a la plancha, crudo, sancochado, al horno, salteado)

## PASO 3: Estimar Gramos (SÉ CONSISTENTE)
- Arroz cocido: 150-200g (cubre ~1/3 del plato)
- Pollo/carne: 120-150g (tamaño palma de la mano)
- Ensalada/verduras: 80-120g
- Papa/tubérculo cocido: 150-200g
- Menestras/legumbres cocidas: 120-160g
- Pan: una unidad = 30-50g
- Huevo: una unidad = 50-60g
- Pasta cocida: 180-220g
- Sopa/caldo: un plato = 300-400ml
Si el alimento cubre ~1/4 del plato, usa el extremo inferior del rango. Si cubre ~1/2, usa el extremo superior.

## PASO 4: Asignar Confianza
- 0.9-1.0: claramente visible y reconocible
- 0.7-0.8: reconocible pero parcialmente oculto
- 0.5-0.6: difícil de identificar con certeza

## FORMATO DE RESPUESTA (SOLO JSON, SIN TEXTO):
{
  "foods": [
    {"name": "nombre del alimento en español", "estimated_grams": número_entero, "preparation": "tipo de preparación", "confidence": 0.0}
  ],
  "meal_description": "descripción breve del plato"
}

Sé CONSERVADOR y CONSISTENTE. SOLO devuelve el JSON.`

// DetectImageType returns mimeType when it is an image type, otherwise it
// sniffs the bytes.
func DetectImageType(image []byte, mimeType string) (string, error) {
	if len(image) == 0 {
		return "", ErrEmptyImage
	}
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.Index(mimeType, ";"); i >= 0 {
		mimeType = strings.TrimSpace(mimeType[:i])
	}
	if !strings.HasPrefix(mimeType, "image/") {
		mimeType = http.DetectContentType(image)
	}
	if !strings.HasPrefix(mimeType, "image/") {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedImage, mimeType)
	}
	return mimeType, nil
}

// ParseAnalysis decodes the model's answer, tolerating a surrounding
// markdown code fence. Items without a name are dropped and negative or
// out-of-range numbers are clamped.
func ParseAnalysis(text string) (Analysis, error) {
	body := stripFence(text)

	var a Analysis
	if err := json.Unmarshal([]byte(body), &a); err != nil {
		snippet := body
		if len(snippet) > 200 {
			snippet = snippet[:200]
		}
		return Analysis{}, fmt.Errorf("failed to parse model response as JSON: %q: %w", snippet, err)
	}

	foods := make([]DetectedFood, 0, len(a.Foods))
	for _, f := range a.Foods {
		f.Name = strings.TrimSpace(f.Name)
		if f.Name == "" {
			continue
		}
		f.Preparation = strings.TrimSpace(f.Preparation)
		if f.EstimatedGrams < 0 {
			f.EstimatedGrams = 0
		}
		f.Confidence = min(max(f.Confidence, 0), 1)
		foods = append(foods, f)
	}
	a.Foods = foods
	return a, nil
}

func stripFence(text string) string {
	s := strings.TrimSpace(text)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
