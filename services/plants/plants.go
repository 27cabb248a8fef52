// Package plants holds the static plant-profile table. Profiles are
// informational: nothing in the monitor enforces their thresholds.
package plants

import (
	"plantsense-go/x/conv"
)

// Profile describes target growing conditions for one crop.
type Profile struct {
	Name             string `yaml:"name" json:"name"`
	MaxTempC         int    `yaml:"max_temp_c" json:"max_temp_c"`
	MinTempC         int    `yaml:"min_temp_c" json:"min_temp_c"`
	OptimalCO2       int    `yaml:"optimal_co2" json:"optimal_co2"`   // ppm
	MinMoisture      int    `yaml:"min_moisture" json:"min_moisture"` // %
	MaxMoisture      int    `yaml:"max_moisture" json:"max_moisture"` // %
	OptimalLight     int    `yaml:"optimal_light" json:"optimal_light"`
	MaxVelocity      int    `yaml:"max_velocity" json:"max_velocity"` // centi m/s
	FanActivation    bool   `yaml:"fan_activation" json:"fan_activation"`
	WaterPumpControl bool   `yaml:"water_pump_control" json:"water_pump_control"`
}

var table = [...]Profile{
	{Name: "Lettuce", MaxTempC: 24, MinTempC: 7, OptimalCO2: 400, MinMoisture: 50, MaxMoisture: 70, OptimalLight: 5000, MaxVelocity: 50, FanActivation: true, WaterPumpControl: true},
	{Name: "Tomato", MaxTempC: 30, MinTempC: 18, OptimalCO2: 450, MinMoisture: 55, MaxMoisture: 75, OptimalLight: 6000, MaxVelocity: 70, FanActivation: true, WaterPumpControl: true},
	{Name: "Basil", MaxTempC: 28, MinTempC: 15, OptimalCO2: 400, MinMoisture: 50, MaxMoisture: 65, OptimalLight: 5500, MaxVelocity: 60, FanActivation: true, WaterPumpControl: true},
}

// All returns the profiles in menu order.
func All() []Profile {
	out := make([]Profile, len(table))
	copy(out, table[:])
	return out
}

// ByChoice maps a menu key '1'..'3' to a profile.
func ByChoice(c byte) (Profile, bool) {
	if c < '1' || int(c-'1') >= len(table) {
		return Profile{}, false
	}
	return table[c-'1'], true
}

// ByName finds a profile by exact name.
func ByName(name string) (Profile, bool) {
	for _, p := range table {
		if p.Name == name {
			return p, true
		}
	}
	return Profile{}, false
}

// Describe renders the profile as the console prints it.
func Describe(p Profile) string {
	b := make([]byte, 0, 256)
	line := func(k, v string) {
		b = append(b, k...)
		b = append(b, ": "...)
		b = append(b, v...)
		b = append(b, '\n')
	}
	itoa := conv.Itoa
	line("Plant Name", p.Name)
	line("Max Temperature", itoa(p.MaxTempC))
	line("Min Temperature", itoa(p.MinTempC))
	line("Optimal CO2", itoa(p.OptimalCO2))
	line("Min Moisture", itoa(p.MinMoisture))
	line("Max Moisture", itoa(p.MaxMoisture))
	line("Optimal Light", itoa(p.OptimalLight))
	line("Max Velocity", centi(p.MaxVelocity))
	line("Fan Activation", flag(p.FanActivation))
	line("Water Pump Control", flag(p.WaterPumpControl))
	return string(b)
}

func flag(v bool) string {
	if v {
		return "1"
	}
	return "0"
}

func centi(v int) string { return conv.Centi(int32(v)) }
