package domain

import "time"

// Forecast is the shared entity both front ends read and write. Updates to it
// are what the realtime control plane fans out to connected clients.
type Forecast struct {
	ID           string    `json:"id"`
	Location     string    `json:"location"`
	Date         time.Time `json:"date"`
	TemperatureC int       `json:"temperature_c"`
	Summary      string    `json:"summary"`
	CreatedBy    string    `json:"created_by"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TemperatureF derives the Fahrenheit reading from the stored Celsius value.
func (f Forecast) TemperatureF() int {
	return 32 + int(float64(f.TemperatureC)/0.5556)
}
