// internal/models/apartment.go
package models

// Neighborhoods lists the selectable neighborhoods. Values are matched byte-for-byte
// against model column names, so spelling and punctuation must not be altered.
var Neighborhoods = []string{
	"Bahcelievler Mh.",
	"Balbey Mah.",
	"Bayindir Mh.",
	"Caglayan Mh.",
	"Demircikara Mah.",
	"Doguyaka Mh.",
	"Fener Mah.",
	"Muratpasa Mh.",
	"Selcuk Mh.",
	"Sirinyalı Mh.",
	"Yesilbahce Mh.",
}

// HeatingTypes lists the selectable heating types.
var HeatingTypes = []string{
	"Boiler (Electric)",
	"Central",
	"Combi Boiler (Natural Gas)",
	"Floor Heating",
	"None",
}

// ParkingOptions lists the selectable parking options.
var ParkingOptions = []string{
	"Open Parking Lot",
	"Parking Garage",
	"No Parking",
}

// ApartmentInput is one snapshot of the apartment form.
type ApartmentInput struct {
	TotalArea          float64 `json:"total_area"`
	LivingArea         float64 `json:"living_area"`
	Rooms              int     `json:"rooms"`
	BuildingAge        int     `json:"building_age"`
	Floor              int     `json:"floor"`
	TotalFloors        int     `json:"total_floors"`
	Bathrooms          int     `json:"bathrooms"`
	Balcony            bool    `json:"balcony"`
	Elevator           bool    `json:"elevator"`
	ResidentialComplex bool    `json:"residential_complex"`
	Furnished          bool    `json:"furnished"`
	MaintenanceFee     float64 `json:"maintenance_fee"`
	Deposit            float64 `json:"deposit"`
	Neighborhood       string  `json:"neighborhood"`
	HeatingType        string  `json:"heating_type"`
	Parking            string  `json:"parking"`
}

// DefaultApartmentInput returns the values the form starts with.
func DefaultApartmentInput() ApartmentInput {
	return ApartmentInput{
		TotalArea:          80,
		LivingArea:         60,
		Rooms:              2,
		BuildingAge:        10,
		Floor:              2,
		TotalFloors:        10,
		Bathrooms:          1,
		Balcony:            true,
		Elevator:           true,
		ResidentialComplex: true,
		Furnished:          true,
		MaintenanceFee:     50,
		Deposit:            1000,
		Neighborhood:       Neighborhoods[0],
		HeatingType:        HeatingTypes[0],
		Parking:            ParkingOptions[0],
	}
}

// FieldKind is the widget type of a form field.
type FieldKind string

const (
	FieldNumber  FieldKind = "number"
	FieldInteger FieldKind = "integer"
	FieldBoolean FieldKind = "boolean"
	FieldEnum    FieldKind = "enum"
)

// FormField describes one input of the apartment form.
type FormField struct {
	Name    string      `json:"name"`
	Label   string      `json:"label"`
	Kind    FieldKind   `json:"kind"`
	Min     *float64    `json:"min,omitempty"`
	Max     *float64    `json:"max,omitempty"`
	Default interface{} `json:"default"`
	Options []string    `json:"options,omitempty"`
}

func bound(v float64) *float64 { return &v }

// FormFields returns the apartment form definition in display order.
func FormFields() []FormField {
	d := DefaultApartmentInput()
	return []FormField{
		{Name: "total_area", Label: "Total Area (m²)", Kind: FieldNumber, Min: bound(20), Max: bound(500), Default: d.TotalArea},
		{Name: "living_area", Label: "Living Area (m²)", Kind: FieldNumber, Min: bound(15), Max: bound(400), Default: d.LivingArea},
		{Name: "rooms", Label: "Rooms", Kind: FieldInteger, Min: bound(1), Max: bound(10), Default: d.Rooms},
		{Name: "building_age", Label: "Building Age", Kind: FieldInteger, Min: bound(0), Max: bound(100), Default: d.BuildingAge},
		{Name: "floor", Label: "Floor", Kind: FieldInteger, Min: bound(0), Max: bound(50), Default: d.Floor},
		{Name: "total_floors", Label: "Total Floors in Building", Kind: FieldInteger, Min: bound(1), Max: bound(50), Default: d.TotalFloors},
		{Name: "bathrooms", Label: "Bathrooms", Kind: FieldInteger, Min: bound(1), Max: bound(5), Default: d.Bathrooms},
		{Name: "balcony", Label: "Balcony", Kind: FieldBoolean, Default: d.Balcony},
		{Name: "elevator", Label: "Elevator", Kind: FieldBoolean, Default: d.Elevator},
		{Name: "residential_complex", Label: "In Residential Complex", Kind: FieldBoolean, Default: d.ResidentialComplex},
		{Name: "furnished", Label: "Furnished", Kind: FieldBoolean, Default: d.Furnished},
		{Name: "maintenance_fee", Label: "Maintenance Fee (USD)", Kind: FieldNumber, Min: bound(0), Max: bound(1000), Default: d.MaintenanceFee},
		{Name: "deposit", Label: "Deposit (USD)", Kind: FieldNumber, Min: bound(0), Max: bound(10000), Default: d.Deposit},
		{Name: "neighborhood", Label: "Neighborhood", Kind: FieldEnum, Default: d.Neighborhood, Options: Neighborhoods},
		{Name: "heating_type", Label: "Heating Type", Kind: FieldEnum, Default: d.HeatingType, Options: HeatingTypes},
		{Name: "parking", Label: "Parking", Kind: FieldEnum, Default: d.Parking, Options: ParkingOptions},
	}
}
