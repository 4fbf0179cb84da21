package config

import (
	"fmt"
	"sort"
	"strings"
)

// DeviceTiming describes a DRAM part. Timing values are in DRAM clock cycles,
// TCK is in nanoseconds and currents are in milliamperes.
type DeviceTiming struct {
	Name string `yaml:"name" json:"name"`

	NumRanks    int     `yaml:"num_ranks" json:"num_ranks"`
	NumBanks    int     `yaml:"num_banks" json:"num_banks"`
	NumRows     int     `yaml:"num_rows" json:"num_rows"`
	NumCols     int     `yaml:"num_cols" json:"num_cols"`
	DeviceWidth int     `yaml:"device_width" json:"device_width"`
	BL          int     `yaml:"bl" json:"bl"`
	Vdd         float64 `yaml:"vdd" json:"vdd"`

	TCK   float64 `yaml:"tck" json:"tck"`
	TCMDS int     `yaml:"tcmds" json:"tcmds"`
	TRTRS int     `yaml:"trtrs" json:"trtrs"`
	TRCD  int     `yaml:"trcd" json:"trcd"`
	TRP   int     `yaml:"trp" json:"trp"`
	TRC   int     `yaml:"trc" json:"trc"`
	TRAS  int     `yaml:"tras" json:"tras"`
	TCL   int     `yaml:"tcl" json:"tcl"`
	TCWL  int     `yaml:"tcwl" json:"tcwl"`
	TRRD  int     `yaml:"trrd" json:"trrd"`
	TFAW  int     `yaml:"tfaw" json:"tfaw"`
	TWR   int     `yaml:"twr" json:"twr"`
	TWTR  int     `yaml:"twtr" json:"twtr"`
	TRTP  int     `yaml:"trtp" json:"trtp"`
	TCCD  int     `yaml:"tccd" json:"tccd"`
	TRFC  int     `yaml:"trfc" json:"trfc"`

	IDD0  int `yaml:"idd0" json:"idd0"`
	IDD2N int `yaml:"idd2n" json:"idd2n"`
	IDD3N int `yaml:"idd3n" json:"idd3n"`
	IDD4R int `yaml:"idd4r" json:"idd4r"`
	IDD4W int `yaml:"idd4w" json:"idd4w"`
	IDD5B int `yaml:"idd5b" json:"idd5b"`
}

// DDR3_1066 is a 1066 MT/s DDR3 part.
var DDR3_1066 = DeviceTiming{
	Name:        "DDR3_1066",
	NumRanks:    4,
	NumBanks:    8,
	NumRows:     32768,
	NumCols:     2048,
	DeviceWidth: 4,
	BL:          8,
	Vdd:         1.5,
	TCK:         1.875,
	TCMDS:       1,
	TRTRS:       2,
	TRCD:        7,
	TRP:         7,
	TRC:         27,
	TRAS:        20,
	TCL:         7,
	TCWL:        6,
	TRRD:        4,
	TFAW:        20,
	TWR:         8,
	TWTR:        4,
	TRTP:        4,
	TCCD:        4,
	TRFC:        86,
	IDD0:        90,
	IDD2N:       70,
	IDD3N:       80,
	IDD4R:       200,
	IDD4W:       255,
	IDD5B:       290,
}

// DDR3_1333 is a 1333 MT/s DDR3 part.
var DDR3_1333 = DeviceTiming{
	Name:        "DDR3_1333",
	NumRanks:    4,
	NumBanks:    8,
	NumRows:     65536,
	NumCols:     2048,
	DeviceWidth: 4,
	BL:          8,
	Vdd:         1.5,
	TCK:         1.5,
	TCMDS:       1,
	TRTRS:       2,
	TRCD:        9,
	TRP:         9,
	TRC:         33,
	TRAS:        24,
	TCL:         9,
	TCWL:        7,
	TRRD:        4,
	TFAW:        20,
	TWR:         10,
	TWTR:        5,
	TRTP:        5,
	TCCD:        4,
	TRFC:        107,
	IDD0:        75,
	IDD2N:       40,
	IDD3N:       45,
	IDD4R:       150,
	IDD4W:       155,
	IDD5B:       230,
}

// DDR3_1600 is a 1600 MT/s DDR3 part.
var DDR3_1600 = DeviceTiming{
	Name:        "DDR3_1600",
	NumRanks:    4,
	NumBanks:    8,
	NumRows:     16384,
	NumCols:     2048,
	DeviceWidth: 4,
	BL:          8,
	Vdd:         1.5,
	TCK:         1.25,
	TCMDS:       1,
	TRTRS:       2,
	TRCD:        11,
	TRP:         11,
	TRC:         39,
	TRAS:        28,
	TCL:         11,
	TCWL:        8,
	TRRD:        5,
	TFAW:        24,
	TWR:         12,
	TWTR:        6,
	TRTP:        6,
	TCCD:        4,
	TRFC:        88,
	IDD0:        95,
	IDD2N:       70,
	IDD3N:       67,
	IDD4R:       250,
	IDD4W:       250,
	IDD5B:       260,
}

var presets = map[string]DeviceTiming{
	DDR3_1066.Name: DDR3_1066,
	DDR3_1333.Name: DDR3_1333,
	DDR3_1600.Name: DDR3_1600,
}

// Preset returns the device with the given name.
func Preset(name string) (DeviceTiming, error) {
	d, ok := presets[strings.ToUpper(strings.TrimSpace(name))]
	if !ok {
		return DeviceTiming{}, fmt.Errorf(
			"%w: unknown device %q, known devices are %s",
			ErrInvalidValue, name, strings.Join(PresetNames(), ", "))
	}

	return d, nil
}

// PresetNames lists the names of the built-in devices.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for n := range presets {
		names = append(names, n)
	}

	sort.Strings(names)

	return names
}
