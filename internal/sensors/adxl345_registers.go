// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"fmt"
	"strconv"
)

// RegisterInfo describes one device register for the register debug tool.
type RegisterInfo struct {
	Address     string     `json:"address"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Access      string     `json:"access"` // "R", "W", "RW"
	Default     string     `json:"default,omitempty"`
	BitFields   []BitField `json:"bit_fields,omitempty"`
}

// BitField describes a group of bits inside a register.
type BitField struct {
	Bits        string `json:"bits"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Values      string `json:"values,omitempty"`
}

// Addr parses the hex address string.
func (r RegisterInfo) Addr() (byte, error) {
	v, err := strconv.ParseUint(r.Address, 0, 8)
	if err != nil {
		return 0, fmt.Errorf("register %s: bad address %q: %w", r.Name, r.Address, err)
	}
	return byte(v), nil
}

// IsWritable reports whether reg is documented as writable.
func IsWritable(reg byte) bool {
	for _, r := range GetADXL345RegisterMap() {
		addr, err := r.Addr()
		if err == nil && addr == reg {
			return r.Access == "RW" || r.Access == "W"
		}
	}
	return false
}

// GetADXL345RegisterMap returns metadata for all ADXL345 registers.
func GetADXL345RegisterMap() []RegisterInfo {
	return []RegisterInfo{
		// Identification
		{Address: "0x00", Name: "DEVID", Description: "Device ID (should be 0xE5)", Access: "R", Default: "0xE5"},

		// Tap / activity / free-fall
		{Address: "0x1D", Name: "THRESH_TAP", Description: "Tap threshold (62.5 mg/LSB)", Access: "RW", Default: "0x00"},
		{Address: "0x1E", Name: "OFSX", Description: "X-axis offset (15.6 mg/LSB, two's complement)", Access: "RW", Default: "0x00"},
		{Address: "0x1F", Name: "OFSY", Description: "Y-axis offset (15.6 mg/LSB, two's complement)", Access: "RW", Default: "0x00"},
		{Address: "0x20", Name: "OFSZ", Description: "Z-axis offset (15.6 mg/LSB, two's complement)", Access: "RW", Default: "0x00"},
		{Address: "0x21", Name: "DUR", Description: "Tap duration (625 µs/LSB)", Access: "RW", Default: "0x00"},
		{Address: "0x22", Name: "Latent", Description: "Tap latency (1.25 ms/LSB)", Access: "RW", Default: "0x00"},
		{Address: "0x23", Name: "Window", Description: "Tap window (1.25 ms/LSB)", Access: "RW", Default: "0x00"},
		{Address: "0x24", Name: "THRESH_ACT", Description: "Activity threshold (62.5 mg/LSB)", Access: "RW", Default: "0x00"},
		{Address: "0x25", Name: "THRESH_INACT", Description: "Inactivity threshold (62.5 mg/LSB)", Access: "RW", Default: "0x00"},
		{Address: "0x26", Name: "TIME_INACT", Description: "Inactivity time (1 s/LSB)", Access: "RW", Default: "0x00"},
		{Address: "0x27", Name: "ACT_INACT_CTL", Description: "Axis enable control for activity and inactivity detection", Access: "RW", Default: "0x00",
			BitFields: []BitField{
				{Bits: "7", Name: "ACT_ac/dc", Description: "Activity coupling", Values: "0=DC, 1=AC"},
				{Bits: "6:4", Name: "ACT_X/Y/Z", Description: "Activity axis enable", Values: "1=Enabled"},
				{Bits: "3", Name: "INACT_ac/dc", Description: "Inactivity coupling", Values: "0=DC, 1=AC"},
				{Bits: "2:0", Name: "INACT_X/Y/Z", Description: "Inactivity axis enable", Values: "1=Enabled"},
			}},
		{Address: "0x28", Name: "THRESH_FF", Description: "Free-fall threshold (62.5 mg/LSB)", Access: "RW", Default: "0x00"},
		{Address: "0x29", Name: "TIME_FF", Description: "Free-fall time (5 ms/LSB)", Access: "RW", Default: "0x00"},
		{Address: "0x2A", Name: "TAP_AXES", Description: "Axis control for single tap/double tap", Access: "RW", Default: "0x00",
			BitFields: []BitField{
				{Bits: "3", Name: "Suppress", Description: "Suppress double tap on high g between taps", Values: "0=Off, 1=On"},
				{Bits: "2:0", Name: "TAP_X/Y/Z", Description: "Tap axis enable", Values: "1=Enabled"},
			}},
		{Address: "0x2B", Name: "ACT_TAP_STATUS", Description: "Source of single tap/double tap", Access: "R", Default: "0x00"},

		// Control
		{Address: "0x2C", Name: "BW_RATE", Description: "Data rate and power mode control", Access: "RW", Default: "0x0A",
			BitFields: []BitField{
				{Bits: "4", Name: "LOW_POWER", Description: "Reduced power operation", Values: "0=Normal, 1=Low power"},
				{Bits: "3:0", Name: "Rate", Description: "Output data rate", Values: "0x6=6.25Hz ... 0xA=100Hz, 0xD=800Hz, 0xF=3200Hz"},
			}},
		{Address: "0x2D", Name: "POWER_CTL", Description: "Power-saving features control", Access: "RW", Default: "0x00",
			BitFields: []BitField{
				{Bits: "5", Name: "Link", Description: "Link activity and inactivity", Values: "0=Concurrent, 1=Serial"},
				{Bits: "4", Name: "AUTO_SLEEP", Description: "Automatic sleep on inactivity", Values: "0=Disabled, 1=Enabled"},
				{Bits: "3", Name: "Measure", Description: "Measurement mode", Values: "0=Standby, 1=Measure"},
				{Bits: "2", Name: "Sleep", Description: "Sleep mode", Values: "0=Normal, 1=Sleep"},
				{Bits: "1:0", Name: "Wakeup", Description: "Reading frequency in sleep", Values: "0=8Hz, 1=4Hz, 2=2Hz, 3=1Hz"},
			}},
		{Address: "0x2E", Name: "INT_ENABLE", Description: "Interrupt enable control", Access: "RW", Default: "0x00",
			BitFields: []BitField{
				{Bits: "7", Name: "DATA_READY", Description: "Data ready interrupt", Values: "0=Disabled, 1=Enabled"},
				{Bits: "6", Name: "SINGLE_TAP", Description: "Single tap interrupt", Values: "0=Disabled, 1=Enabled"},
				{Bits: "5", Name: "DOUBLE_TAP", Description: "Double tap interrupt", Values: "0=Disabled, 1=Enabled"},
				{Bits: "4", Name: "Activity", Description: "Activity interrupt", Values: "0=Disabled, 1=Enabled"},
				{Bits: "3", Name: "Inactivity", Description: "Inactivity interrupt", Values: "0=Disabled, 1=Enabled"},
				{Bits: "2", Name: "FREE_FALL", Description: "Free-fall interrupt", Values: "0=Disabled, 1=Enabled"},
				{Bits: "1", Name: "Watermark", Description: "FIFO watermark interrupt", Values: "0=Disabled, 1=Enabled"},
				{Bits: "0", Name: "Overrun", Description: "Data overrun interrupt", Values: "0=Disabled, 1=Enabled"},
			}},
		{Address: "0x2F", Name: "INT_MAP", Description: "Interrupt mapping control", Access: "RW", Default: "0x00",
			BitFields: []BitField{
				{Bits: "7:0", Name: "INT_MAP", Description: "Interrupt pin per source (bit order as INT_ENABLE)", Values: "0=INT1, 1=INT2"},
			}},
		{Address: "0x30", Name: "INT_SOURCE", Description: "Source of interrupts", Access: "R", Default: "0x02"},
		{Address: "0x31", Name: "DATA_FORMAT", Description: "Data format control", Access: "RW", Default: "0x00",
			BitFields: []BitField{
				{Bits: "7", Name: "SELF_TEST", Description: "Self-test force", Values: "0=Disabled, 1=Enabled"},
				{Bits: "6", Name: "SPI", Description: "SPI mode", Values: "0=4-wire, 1=3-wire"},
				{Bits: "5", Name: "INT_INVERT", Description: "Interrupt polarity", Values: "0=Active high, 1=Active low"},
				{Bits: "3", Name: "FULL_RES", Description: "Full resolution (3.9 mg/LSB)", Values: "0=10-bit, 1=Full resolution"},
				{Bits: "2", Name: "Justify", Description: "Data justification", Values: "0=Right, 1=Left (MSB)"},
				{Bits: "1:0", Name: "Range", Description: "g range", Values: "0=±2g, 1=±4g, 2=±8g, 3=±16g"},
			}},

		// Data (little-endian pairs)
		{Address: "0x32", Name: "DATAX0", Description: "X-Axis Data 0 (LSB)", Access: "R"},
		{Address: "0x33", Name: "DATAX1", Description: "X-Axis Data 1 (MSB)", Access: "R"},
		{Address: "0x34", Name: "DATAY0", Description: "Y-Axis Data 0 (LSB)", Access: "R"},
		{Address: "0x35", Name: "DATAY1", Description: "Y-Axis Data 1 (MSB)", Access: "R"},
		{Address: "0x36", Name: "DATAZ0", Description: "Z-Axis Data 0 (LSB)", Access: "R"},
		{Address: "0x37", Name: "DATAZ1", Description: "Z-Axis Data 1 (MSB)", Access: "R"},

		// FIFO
		{Address: "0x38", Name: "FIFO_CTL", Description: "FIFO control", Access: "RW", Default: "0x00",
			BitFields: []BitField{
				{Bits: "7:6", Name: "FIFO_MODE", Description: "FIFO mode", Values: "0=Bypass, 1=FIFO, 2=Stream, 3=Trigger"},
				{Bits: "5", Name: "Trigger", Description: "Trigger event interrupt", Values: "0=INT1, 1=INT2"},
				{Bits: "4:0", Name: "Samples", Description: "Watermark / trigger sample count", Values: "0-31"},
			}},
		{Address: "0x39", Name: "FIFO_STATUS", Description: "FIFO status", Access: "R", Default: "0x00",
			BitFields: []BitField{
				{Bits: "7", Name: "FIFO_TRIG", Description: "Trigger event occurred", Values: ""},
				{Bits: "5:0", Name: "Entries", Description: "Samples stored in FIFO", Values: "0-32"},
			}},
	}
}
