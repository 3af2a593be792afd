package geocoding

// Coordinates is a (longitude, latitude) pair.
type Coordinates struct {
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
}

func (c Coordinates) Valid() bool {
	return c.Lon >= -180 && c.Lon <= 180 && c.Lat >= -90 && c.Lat <= 90
}

type nominatimResult struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}
