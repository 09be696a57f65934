package attributes

import (
	"fmt"
	"strconv"
)

// Sentinel is shown for any value we don't have yet, or lost to a failed analysis.
const Sentinel = "N/A"

// AgeOffset is subtracted from the model's age estimate before display.
const AgeOffset = 10

// Display holds the three strings drawn next to a face.
type Display struct {
	Emotion string
	Gender  string
	Age     string
}

// Unset returns a Display with every field set to Sentinel.
func Unset() Display {
	return Display{Emotion: Sentinel, Gender: Sentinel, Age: Sentinel}
}

// Attributes is the decoded output of one analysis.
type Attributes struct {
	DominantEmotion string
	// Gender is nil when the model did not return a label->probability mapping.
	Gender          map[string]float64
	Age             float64
}

// Display derives the strings drawn on the frame.
func (a Attributes) Display() Display {
	gender := Sentinel
	if a.Gender != nil {
		gender = FormatGender(a.Gender)
	}
	return Display{
		Emotion: a.DominantEmotion,
		Gender:  gender,
		Age:     strconv.FormatFloat(AdjustAge(a.Age), 'f', -1, 64),
	}
}

// AdjustAge applies AgeOffset and floors the result at zero.
func AdjustAge(age float64) float64 {
	return max(0, age-AgeOffset)
}

// FormatGender renders probabilities as "Man: X%, Woman: Y%" with one decimal.
// Missing labels count as zero.
func FormatGender(probs map[string]float64) string {
	return fmt.Sprintf("Man: %.1f%%, Woman: %.1f%%", probs["Man"], probs["Woman"])
}

// FromRaw decodes one per-face mapping as returned by the attribute model.
// The model's output shape is not guaranteed, so every key is optional:
//   - missing dominant_emotion -> Sentinel
//   - gender absent or not a mapping -> nil Gender
//   - missing or non-numeric age -> 0
func FromRaw(raw map[string]interface{}) Attributes {
	a := Attributes{DominantEmotion: Sentinel}

	if v, ok := raw["dominant_emotion"]; ok {
		if s, ok := v.(string); ok {
			a.DominantEmotion = s
		} else if v != nil {
			a.DominantEmotion = fmt.Sprint(v)
		}
	}

	if m, ok := asMap(raw["gender"]); ok {
		a.Gender = make(map[string]float64, len(m))
		for k, v := range m {
			f, _ := toFloat(v)
			a.Gender[k] = f
		}
	}

	if f, ok := toFloat(raw["age"]); ok {
		a.Age = f
	}

	return a
}

func asMap(v interface{}) (map[string]interface{}, bool) {
	switch m := v.(type) {
	case map[string]interface{}:
		return m, true
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(m))
		for k, val := range m {
			out[fmt.Sprint(k)] = val
		}
		return out, true
	case map[string]float64:
		out := make(map[string]interface{}, len(m))
		for k, val := range m {
			out[k] = val
		}
		return out, true
	}
	return nil, false
}

// toFloat accepts every numeric type a msgpack or JSON decoder may produce.
func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	}
	return 0, false
}
