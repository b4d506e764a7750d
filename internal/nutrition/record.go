package nutrition

import "strings"

const (
	UnknownDish   = "Unknown Dish"
	NoDescription = "No description available"
	RetakeMessage = "Please Retake Picture"
	ErrorDish     = "Error"
)

// Form identifies which parsing strategy produced a Record.
type Form int

const (
	FormProse Form = iota
	FormJSON
	FormTransportError
)

func (f Form) String() string {
	switch f {
	case FormJSON:
		return "json"
	case FormTransportError:
		return "transport_error"
	default:
		return "prose"
	}
}

// Nutrient is one entry of the canonical nutrition breakdown.
type Nutrient struct {
	Key   string
	Label string
}

// Nutrients lists the breakdown in display order.
var Nutrients = []Nutrient{
	{Key: "calories", Label: "Calories"},
	{Key: "carbohydrates", Label: "Carbohydrates"},
	{Key: "sugars", Label: "Sugars"},
	{Key: "fiber", Label: "Fiber"},
	{Key: "protein", Label: "Protein"},
	{Key: "fat", Label: "Fat"},
}

// Record is the normalized reply of a vision model for one food photo.
// NutritionLines is never nil. PortionEstimate is nil when absent.
type Record struct {
	DishName        string
	Description     string
	NutritionLines  []string
	PortionEstimate *string
	Form            Form
}

// IsRetake reports whether r is the "please retake" sentinel.
func (r *Record) IsRetake() bool {
	return r.Description == RetakeMessage && len(r.NutritionLines) == 0 && r.PortionEstimate == nil
}

// IsError reports whether r carries an error message instead of an analysis.
func (r *Record) IsError() bool {
	return r.DishName == ErrorDish && len(r.NutritionLines) == 0 && r.PortionEstimate == nil
}

// HasCanonicalNutrition reports whether NutritionLines holds exactly the six
// Nutrients, labelled and ordered as in Nutrients. The JSON strategy always
// satisfies this when it emits lines; the prose strategy copies lines verbatim
// and may not.
func (r *Record) HasCanonicalNutrition() bool {
	if len(r.NutritionLines) != len(Nutrients) {
		return false
	}
	for i, n := range Nutrients {
		if !strings.HasPrefix(r.NutritionLines[i], n.Label+":") {
			return false
		}
	}
	return true
}

// RetakeRecord returns the sentinel shown when the dish could not be identified.
func RetakeRecord() *Record {
	return &Record{
		DishName:       UnknownDish,
		Description:    RetakeMessage,
		NutritionLines: []string{},
		Form:           FormProse,
	}
}

// ErrorRecord wraps msg, typically a vendor failure, in a displayable record.
func ErrorRecord(msg string) *Record {
	return &Record{
		DishName:       ErrorDish,
		Description:    msg,
		NutritionLines: []string{},
		Form:           FormTransportError,
	}
}

func nutritionLine(label, value string) string {
	return label + ": " + value
}
