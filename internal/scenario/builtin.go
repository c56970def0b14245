package scenario

import (
	"gauntlet-sim/internal/geo"
	"gauntlet-sim/internal/rules"
	"gauntlet-sim/internal/sensor"
)

// BuiltIn returns predefined scenarios usable without any YAML on disk.
func BuiltIn() map[string]Scenario {
	return map[string]Scenario{
		"perimeter-breach": {
			Name:        "Perimeter Breach",
			Description: "An intruder slips through the fence line of an industrial depot and works toward the warehouse office while shift workers move between buildings.",
			Weather:     sensor.WeatherClear,
			Entry:       geo.Point{Lat: 48.1995, Lon: 16.3665},
			Target:      geo.Point{Lat: 48.2042, Lon: 16.3721},
			POIs: []POI{
				{Name: "gate", Pos: geo.Point{Lat: 48.2003, Lon: 16.3672}},
				{Name: "canteen", Pos: geo.Point{Lat: 48.2019, Lon: 16.3694}},
				{Name: "office", Pos: geo.Point{Lat: 48.2031, Lon: 16.3707}},
				{Name: "parking", Pos: geo.Point{Lat: 48.2010, Lon: 16.3700}},
			},
			Sensors: []sensor.Sensor{
				{
					ID: "cam-gate", Kind: sensor.KindCamera,
					Pos: geo.Point{Lat: 48.2005, Lon: 16.3675}, RangeM: 150, BaseProb: 0.8,
					WeatherPenalty: map[sensor.Weather]float64{sensor.WeatherFog: 0.4, sensor.WeatherRain: 0.7, sensor.WeatherNight: 0.6},
				},
				{
					ID: "cam-yard", Kind: sensor.KindCamera,
					Pos: geo.Point{Lat: 48.2026, Lon: 16.3701}, RangeM: 180, BaseProb: 0.75,
					WeatherPenalty: map[sensor.Weather]float64{sensor.WeatherFog: 0.4, sensor.WeatherRain: 0.7, sensor.WeatherNight: 0.6},
				},
				{
					ID: "mic-fence", Kind: sensor.KindAcoustic,
					Pos: geo.Point{Lat: 48.2017, Lon: 16.3688}, RangeM: 220, BaseProb: 0.5,
					WeatherPenalty: map[sensor.Weather]float64{sensor.WeatherRain: 0.6},
				},
			},
			Rules: []rules.Spec{
				{ID: "hc-perimeter", Kind: rules.KindHighConfidenceSighting, Params: rules.Params{MinConfidence: 0.85}},
				{ID: "ps-perimeter", Kind: rules.KindPersistentSighting, Params: rules.Params{TimeWindowS: 10, MinDetections: 3}},
				{ID: "gs-perimeter", Kind: rules.KindGroupSighting, Params: rules.Params{RadiusM: 50, TimeWindowS: 20, MinActors: 4}},
			},
		},
		"market-crossing": {
			Name:        "Market Crossing",
			Description: "A courier cuts across a fogged-in market square, counting on the crowd and the weather to drown out the cameras.",
			Weather:     sensor.WeatherFog,
			Entry:       geo.Point{Lat: 48.2110, Lon: 16.3655},
			Target:      geo.Point{Lat: 48.2155, Lon: 16.3740},
			POIs: []POI{
				{Name: "fountain", Pos: geo.Point{Lat: 48.2126, Lon: 16.3684}},
				{Name: "stalls", Pos: geo.Point{Lat: 48.2135, Lon: 16.3701}},
				{Name: "tram-stop", Pos: geo.Point{Lat: 48.2118, Lon: 16.3712}},
				{Name: "cafe", Pos: geo.Point{Lat: 48.2143, Lon: 16.3725}},
				{Name: "kiosk", Pos: geo.Point{Lat: 48.2130, Lon: 16.3668}},
			},
			Sensors: []sensor.Sensor{
				{
					ID: "cam-square", Kind: sensor.KindCamera,
					Pos: geo.Point{Lat: 48.2128, Lon: 16.3690}, RangeM: 160, BaseProb: 0.85,
					WeatherPenalty: map[sensor.Weather]float64{sensor.WeatherFog: 0.35, sensor.WeatherRain: 0.7},
				},
				{
					ID: "cam-lane", Kind: sensor.KindCamera,
					Pos: geo.Point{Lat: 48.2144, Lon: 16.3722}, RangeM: 140, BaseProb: 0.8,
					WeatherPenalty: map[sensor.Weather]float64{sensor.WeatherFog: 0.35, sensor.WeatherRain: 0.7},
				},
				{
					ID: "mic-stalls", Kind: sensor.KindAcoustic,
					Pos: geo.Point{Lat: 48.2136, Lon: 16.3703}, RangeM: 200, BaseProb: 0.45,
					WeatherPenalty: map[sensor.Weather]float64{sensor.WeatherFog: 0.9, sensor.WeatherRain: 0.5},
				},
			},
			Rules: []rules.Spec{
				{ID: "hc-market", Kind: rules.KindHighConfidenceSighting, Params: rules.Params{MinConfidence: 0.9}},
				{ID: "ps-market", Kind: rules.KindPersistentSighting, Params: rules.Params{TimeWindowS: 15, MinDetections: 4}},
				{ID: "gs-market", Kind: rules.KindGroupSighting, Params: rules.Params{RadiusM: 40, TimeWindowS: 15, MinActors: 3}},
			},
		},
		"depot-night-watch": {
			Name:        "Depot Night Watch",
			Description: "Night shift at a rail depot: cameras are half blind, and the watch leans on acoustic pickups to flag anyone moving between the sidings.",
			Weather:     sensor.WeatherNight,
			Entry:       geo.Point{Lat: 48.1860, Lon: 16.3770},
			Target:      geo.Point{Lat: 48.1905, Lon: 16.3830},
			POIs: []POI{
				{Name: "signal-box", Pos: geo.Point{Lat: 48.1872, Lon: 16.3788}},
				{Name: "loading-dock", Pos: geo.Point{Lat: 48.1886, Lon: 16.3806}},
				{Name: "workshop", Pos: geo.Point{Lat: 48.1897, Lon: 16.3818}},
			},
			Sensors: []sensor.Sensor{
				{
					ID: "cam-sidings", Kind: sensor.KindCamera,
					Pos: geo.Point{Lat: 48.1878, Lon: 16.3795}, RangeM: 170, BaseProb: 0.8,
					WeatherPenalty: map[sensor.Weather]float64{sensor.WeatherNight: 0.5, sensor.WeatherFog: 0.4},
				},
				{
					ID: "mic-north", Kind: sensor.KindAcoustic,
					Pos: geo.Point{Lat: 48.1890, Lon: 16.3812}, RangeM: 240, BaseProb: 0.55,
					WeatherPenalty: map[sensor.Weather]float64{sensor.WeatherRain: 0.6},
				},
				{
					ID: "mic-south", Kind: sensor.KindAcoustic,
					Pos: geo.Point{Lat: 48.1868, Lon: 16.3780}, RangeM: 240, BaseProb: 0.55,
					WeatherPenalty: map[sensor.Weather]float64{sensor.WeatherRain: 0.6},
				},
			},
			Rules: []rules.Spec{
				{ID: "hc-depot", Kind: rules.KindHighConfidenceSighting, Params: rules.Params{MinConfidence: 0.8}},
				{ID: "ps-depot", Kind: rules.KindPersistentSighting, Params: rules.Params{TimeWindowS: 20, MinDetections: 3}},
			},
		},
	}
}
