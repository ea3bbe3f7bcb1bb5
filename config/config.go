/*
 * config - Axis definition loader for the demo harness.
 *
 * Copyright (c) 2026, the axiscore authors.
 *
 * Permission is hereby granted, free of charge, to any person obtaining a
 * copy of this software and associated documentation files (the "Software"),
 * to deal in the Software without restriction, including without limitation
 * the rights to use, copy, modify, merge, publish, distribute, sublicense,
 * and/or sell copies of the Software, and to permit persons to whom the
 * Software is furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in
 * all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT.
 */

// Package config loads the demo harness's axis definitions from a TOML
// file. It is deliberately thin: the core axis package never parses text,
// it is constructed from already-validated Go values, so this package's
// only job is turning a config file into a slice of AxisDef and leaving
// every other decision to cmd/axissim.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// AxisDef mirrors the handful of axis.Record parameters worth exposing in
// a config file. Fields left zero take the defaults axis.New already
// applies.
type AxisDef struct {
	Name string `toml:"name"`

	MRES float64 `toml:"mres"`
	ERES float64 `toml:"eres"`
	SREV float64 `toml:"srev"`

	S    float64 `toml:"velocity"`
	SBAS float64 `toml:"velocity_base"`
	SMAX float64 `toml:"velocity_max"`
	SBAK float64 `toml:"velocity_backlash"`

	JVEL float64 `toml:"jog_velocity"`
	JAR  float64 `toml:"jog_accel_time"`
	HVEL float64 `toml:"home_velocity"`
	ACCL float64 `toml:"accel_time"`
	BACC float64 `toml:"backlash_accel_time"`
	BDST float64 `toml:"backlash_distance"`

	SDBD float64 `toml:"still_deadband"`
	RDBD float64 `toml:"retry_deadband"`
	RTRY int     `toml:"retry_count"`
	RMOD string  `toml:"retry_mode"` // "default", "arithmetic", "geometric", "in_position"
	DLY  float64 `toml:"settle_delay"`

	DHLM float64 `toml:"dial_high_limit"`
	DLLM float64 `toml:"dial_low_limit"`

	DriverTick string `toml:"driver_tick"` // e.g. "1ms"; empty uses cmd/axissim's --tick value
}

// File is the top-level shape of an axis config file: a TOML array of
// tables, one per axis, e.g.
//
//	[[axis]]
//	name = "x"
//	mres = 0.001
type File struct {
	Axis []AxisDef `toml:"axis"`
}

// Load reads and decodes path into a list of axis definitions.
func Load(path string) ([]AxisDef, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var f File
	if _, err := toml.Decode(string(data), &f); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	for i := range f.Axis {
		if f.Axis[i].Name == "" {
			return nil, fmt.Errorf("config: %s: axis entry %d has no name", path, i)
		}
	}

	return f.Axis, nil
}
