package fit

import "encoding/json"

type reportJSON struct {
	MSE       float64   `json:"mse"`
	RMSE      float64   `json:"rmse"`
	MAE       float64   `json:"mae"`
	R2        *float64  `json:"r2"`
	Residuals []float64 `json:"residuals"`
}

// MarshalJSON encodes an undefined R2 as null; JSON has no NaN.
func (r Report) MarshalJSON() ([]byte, error) {
	out := reportJSON{MSE: r.MSE, RMSE: r.RMSE, MAE: r.MAE, Residuals: r.Residuals}
	if r.R2Defined() {
		r2 := r.R2
		out.R2 = &r2
	}
	return json.Marshal(out)
}
