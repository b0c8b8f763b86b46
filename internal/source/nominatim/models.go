package nominatim

// Place represents one element of the Nominatim search response.
type Place struct {
	Lat         string  `json:"lat"`
	Lon         string  `json:"lon"`
	DisplayName string  `json:"display_name"`
	Address     Address `json:"address"`
}

type Address struct {
	City        string `json:"city"`
	Town        string `json:"town"`
	Village     string `json:"village"`
	Country     string `json:"country"`
	CountryCode string `json:"country_code"`
}

// Locality returns the first non-empty of city, town and village.
func (a Address) Locality() string {
	switch {
	case a.City != "":
		return a.City
	case a.Town != "":
		return a.Town
	default:
		return a.Village
	}
}
