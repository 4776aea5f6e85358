// internal/prediction/features.go
package prediction

import (
	"rent-predictor/internal/models"
)

// Column names the model was trained with. They are matched byte-for-byte.
const (
	ColTotalArea          = "Total_Area_m2"
	ColLivingArea         = "Living_Area_m2"
	ColRooms              = "Rooms"
	ColBuildingAge        = "Building_Age"
	ColFloor              = "Floor"
	ColTotalFloors        = "Total_Floors"
	ColBathrooms          = "Bathrooms"
	ColMaintenanceFee     = "Maintenance_Fee"
	ColDeposit            = "Deposit"
	ColBalcony            = "Balcony"
	ColElevator           = "Elevator"
	ColResidentialComplex = "In_Residential_Complex"
	ColFurnished          = "Furnished_1"

	PrefixNeighborhood = "Neighborhood_"
	PrefixHeatingType  = "Heating_Type_"
	PrefixParking      = "Parking_"
)

// FeatureVector is one model-ready row. Values always has exactly the schema's keys.
type FeatureVector struct {
	Schema []string
	Values map[string]float64

	// Unmatched lists columns the builder tried to write that the schema does not have.
	Unmatched []string
}

// Row returns the values ordered by schema.
func (v FeatureVector) Row() []float64 {
	row := make([]float64, len(v.Schema))
	for i, name := range v.Schema {
		row[i] = v.Values[name]
	}
	return row
}

// BuildFeatureVector maps an apartment input onto the given feature schema.
// Every schema column starts at 0. Known fields overwrite their column when the schema
// has it; anything the schema lacks is skipped and recorded in Unmatched.
func BuildFeatureVector(input models.ApartmentInput, schema []string) FeatureVector {
	vec := FeatureVector{
		Schema: schema,
		Values: make(map[string]float64, len(schema)),
	}
	for _, name := range schema {
		vec.Values[name] = 0
	}

	vec.set(ColTotalArea, input.TotalArea)
	vec.set(ColLivingArea, input.LivingArea)
	vec.set(ColRooms, float64(input.Rooms))
	vec.set(ColBuildingAge, float64(input.BuildingAge))
	vec.set(ColFloor, float64(input.Floor))
	vec.set(ColTotalFloors, float64(input.TotalFloors))
	vec.set(ColBathrooms, float64(input.Bathrooms))
	vec.set(ColMaintenanceFee, input.MaintenanceFee)
	vec.set(ColDeposit, input.Deposit)

	vec.set(ColBalcony, boolToFloat(input.Balcony))
	vec.set(ColElevator, boolToFloat(input.Elevator))
	vec.set(ColResidentialComplex, boolToFloat(input.ResidentialComplex))
	vec.set(ColFurnished, boolToFloat(input.Furnished))

	vec.set(PrefixNeighborhood+input.Neighborhood, 1)
	vec.set(PrefixHeatingType+input.HeatingType, 1)
	vec.set(PrefixParking+input.Parking, 1)

	return vec
}

func (v *FeatureVector) set(column string, value float64) {
	if _, ok := v.Values[column]; !ok {
		v.Unmatched = append(v.Unmatched, column)
		return
	}
	v.Values[column] = value
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// FormColumns lists every column the builder can write for some valid form input.
func FormColumns() []string {
	cols := []string{
		ColTotalArea, ColLivingArea, ColRooms, ColBuildingAge, ColFloor, ColTotalFloors,
		ColBathrooms, ColMaintenanceFee, ColDeposit,
		ColBalcony, ColElevator, ColResidentialComplex, ColFurnished,
	}
	for _, n := range models.Neighborhoods {
		cols = append(cols, PrefixNeighborhood+n)
	}
	for _, h := range models.HeatingTypes {
		cols = append(cols, PrefixHeatingType+h)
	}
	for _, p := range models.ParkingOptions {
		cols = append(cols, PrefixParking+p)
	}
	return cols
}

// SchemaCoverage compares a model schema with the columns the form can produce.
type SchemaCoverage struct {
	// Unreachable are form columns the schema lacks; inputs that hit them are unmatched.
	Unreachable []string `json:"unreachable"`
	// Untouched are schema columns no form input ever writes; they stay 0.
	Untouched []string `json:"untouched"`
}

func CompareSchema(schema []string) SchemaCoverage {
	inSchema := make(map[string]bool, len(schema))
	for _, name := range schema {
		inSchema[name] = true
	}

	var cov SchemaCoverage
	fromForm := make(map[string]bool)
	for _, col := range FormColumns() {
		fromForm[col] = true
		if !inSchema[col] {
			cov.Unreachable = append(cov.Unreachable, col)
		}
	}
	for _, name := range schema {
		if !fromForm[name] {
			cov.Untouched = append(cov.Untouched, name)
		}
	}
	return cov
}
