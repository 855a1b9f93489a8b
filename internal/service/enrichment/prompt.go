package enrichment

import (
	"encoding/json"
	"fmt"
	"strings"

	"objectlens/internal/model"
)

const promptTemplate = `Analyze this image and describe every notable object and the scene as a whole.

A fast on-device detector already found these objects: %s.
Use the same names for those objects where they fit, and add any objects it missed.

IMPORTANT: Return ONLY valid JSON, nothing else.

Format:
{
  "objects": [
    {
      "name": "Dog",
      "category": "Animal",
      "description": "A golden retriever leaping to catch a frisbee",
      "attributes": ["golden fur", "mid-jump"],
      "relationships": ["chasing the frisbee"],
      "significance": "Main subject of the photo",
      "confidence": 0.95
    }
  ],
  "scene_description": "A sunny park scene",
  "background_elements": ["trees", "grass"],
  "overall_mood": "playful"
}

Rules:
- category: one of Person, Animal, Vehicle, Furniture, Technology, Food, Object
- confidence: number between 0 and 1
- attributes and relationships may be empty lists`

// BuildPrompt asks for the enrichment JSON shape, seeded with the local labels.
func BuildPrompt(candidateLabels []string) string {
	known := "none"
	if len(candidateLabels) > 0 {
		known = strings.Join(candidateLabels, ", ")
	}
	return fmt.Sprintf(promptTemplate, known)
}

// ParseResponse extracts the outermost JSON object from a model reply and
// decodes it. Anything that is not an enrichment response fails with model.ErrParse.
func ParseResponse(text string) (*model.EnrichmentResponse, error) {
	jsonStart := strings.Index(text, "{")
	jsonEnd := strings.LastIndex(text, "}")
	if jsonStart == -1 || jsonEnd == -1 || jsonEnd <= jsonStart {
		return nil, fmt.Errorf("%w: cannot find valid JSON in response", model.ErrParse)
	}

	var shape struct {
		model.EnrichmentResponse
		Objects *[]model.EnrichedObject `json:"objects"`
	}
	if err := json.Unmarshal([]byte(text[jsonStart:jsonEnd+1]), &shape); err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrParse, err)
	}
	if shape.Objects == nil {
		return nil, fmt.Errorf("%w: missing objects", model.ErrParse)
	}

	resp := shape.EnrichmentResponse
	resp.Objects = *shape.Objects
	return &resp, nil
}
