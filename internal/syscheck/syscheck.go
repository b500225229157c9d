// Package syscheck verifies that the host can drive the panel.
package syscheck

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/larsks/oledstats/internal/command"
)

type Checker struct {
	runner command.Runner
	euid   func() int
}

func New(runner command.Runner) *Checker {
	return &Checker{
		runner: runner,
		euid:   os.Geteuid,
	}
}

// IsRoot reports whether the process runs with uid 0, which raw I²C
// access usually needs.
func (c *Checker) IsRoot() bool {
	return c.euid() == 0
}

// I2CEnabled asks raspi-config whether the I²C interface is turned on.
// raspi-config answers 0 for enabled.
func (c *Checker) I2CEnabled(ctx context.Context) bool {
	out, err := c.runner.Output(ctx, "raspi-config", "nonint", "get_i2c")
	if err != nil {
		return false
	}
	return string(bytes.TrimSpace(out)) == "0"
}

// PanelPresent scans bus with i2cdetect and reports whether a device
// answers at addr.
func (c *Checker) PanelPresent(ctx context.Context, bus string, addr uint16) bool {
	out, err := c.runner.Output(ctx, "i2cdetect", "-y", BusNumber(bus))
	if err != nil {
		return false
	}
	return tableHasAddress(string(out), addr)
}

// BusNumber turns "/dev/i2c-1" or "1" into "1".
func BusNumber(bus string) string {
	return strings.TrimPrefix(bus, "/dev/i2c-")
}

// tableHasAddress looks for addr in i2cdetect's grid. Rows start with
// the high nibble ("30:"), cells hold the address in hex or "--"/"UU".
func tableHasAddress(table string, addr uint16) bool {
	want := fmt.Sprintf("%02x", addr)
	for _, line := range strings.Split(table, "\n") {
		row, cells, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		if _, err := strconv.ParseUint(strings.TrimSpace(row), 16, 8); err != nil {
			continue
		}
		for _, cell := range strings.Fields(cells) {
			if strings.EqualFold(cell, want) {
				return true
			}
		}
	}
	return false
}
