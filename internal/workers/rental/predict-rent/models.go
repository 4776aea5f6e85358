// internal/workers/rental/predict-rent/models.go
package predictrent

import "rent-predictor/internal/models"

// NotifyEmailVariable optionally carries an address to email the estimate to.
const NotifyEmailVariable = "notifyEmail"

// Input holds the apartment form values taken from the job variables.
type Input struct {
	Apartment map[string]interface{}
	// NotifyEmail is the raw variable; Execute validates it.
	NotifyEmail interface{}
}

type Output struct {
	PredictionID  string  `json:"predictionId"`
	PredictedRent float64 `json:"predictedRent"`
	Currency      string  `json:"currency"`
	Formatted     string  `json:"formatted"`
	ModelKey      string  `json:"modelKey"`
}

// FetchVariables lists the process variables the worker reads.
func FetchVariables() []string {
	fields := models.FormFields()
	names := make([]string, 0, len(fields)+1)
	for _, f := range fields {
		names = append(names, f.Name)
	}
	return append(names, NotifyEmailVariable)
}

// inputFromVariables splits job variables into form values and the notify address.
func inputFromVariables(vars map[string]interface{}) *Input {
	input := &Input{Apartment: make(map[string]interface{}, len(vars))}
	for k, v := range vars {
		if k == NotifyEmailVariable {
			input.NotifyEmail = v
			continue
		}
		input.Apartment[k] = v
	}
	return input
}
