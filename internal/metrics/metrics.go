// Package metrics samples the values shown on the status display.
//
// Every reader returns a usable value even when it also returns an
// error: 0 for numbers, "0.0.0.0" for the address, "localhost" for the
// hostname. Callers may display the value and log the error.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

const (
	DefaultThermalPath = "/sys/class/thermal/thermal_zone0/temp"
	DefaultIPProbe     = "8.8.8.8:80"

	FallbackIP       = "0.0.0.0"
	FallbackHostname = "localhost"
)

// ClampPercent limits v to [0, 100]. NaN becomes 0.
func ClampPercent(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 100:
		return 100
	}
	return v
}

// CPUPercent returns overall CPU utilisation since the previous call.
func CPUPercent(ctx context.Context) (float64, error) {
	usage, err := cpu.PercentWithContext(ctx, 0, false)
	if err != nil {
		return 0, fmt.Errorf("failed to read cpu usage: %w", err)
	}
	if len(usage) == 0 {
		return 0, errors.New("failed to read cpu usage: no data")
	}
	return ClampPercent(usage[0]), nil
}

// MemoryPercent returns the share of RAM in use.
func MemoryPercent(ctx context.Context) (float64, error) {
	vmem, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to read memory usage: %w", err)
	}
	return ClampPercent(vmem.UsedPercent), nil
}

// Thermal reads a sysfs thermal zone.
type Thermal struct {
	Path string
}

func NewThermal(path string) *Thermal {
	if path == "" {
		path = DefaultThermalPath
	}
	return &Thermal{Path: path}
}

// Celsius returns the zone temperature; the file holds millidegrees.
func (t *Thermal) Celsius(_ context.Context) (float64, error) {
	data, err := os.ReadFile(t.Path)
	if err != nil {
		return 0, fmt.Errorf("failed to read temperature: %w", err)
	}

	milli, err := strconv.ParseFloat(strings.TrimSpace(string(data)), 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse temperature from %s: %w", t.Path, err)
	}
	return milli / 1000.0, nil
}

// Hostname returns the kernel hostname.
func Hostname(_ context.Context) (string, error) {
	name, err := os.Hostname()
	if err != nil {
		return FallbackHostname, fmt.Errorf("failed to read hostname: %w", err)
	}
	if name == "" {
		return FallbackHostname, errors.New("failed to read hostname: empty name")
	}
	return name, nil
}

// AddressProbe finds the local address of the default route by opening
// a UDP socket towards Target. Nothing is sent.
type AddressProbe struct {
	Target string
}

func NewAddressProbe(target string) *AddressProbe {
	if target == "" {
		target = DefaultIPProbe
	}
	return &AddressProbe{Target: target}
}

func (p *AddressProbe) Address(ctx context.Context) (string, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "udp", p.Target)
	if err != nil {
		return FallbackIP, fmt.Errorf("failed to determine local address: %w", err)
	}
	defer conn.Close() //nolint:errcheck

	addr, ok := conn.LocalAddr().(*net.UDPAddr)
	if !ok || addr.IP == nil || addr.IP.IsUnspecified() {
		return FallbackIP, fmt.Errorf("failed to determine local address: got %v", conn.LocalAddr())
	}
	return addr.IP.String(), nil
}
