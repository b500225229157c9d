// Package manager lays widgets out on the panel and drives the refresh
// loop.
//
// The top row holds resource widgets growing from the left edge and
// service widgets growing from the right edge. The bottom half holds
// text widgets from the left edge.
package manager

import (
	"context"
	"fmt"
	"image"
	"log"
	"time"

	"github.com/larsks/oledstats/internal/widget"
)

type (
	// Screen is where finished frames go; *display.Display satisfies it.
	Screen interface {
		Bounds() image.Rectangle
		Show(img image.Image) error
		ClearScreen() error
	}

	entry struct {
		name    string
		widget  widget.Widget
		lastErr string
	}

	Manager struct {
		screen        Screen
		resources     []*entry
		services      []*entry
		texts         []*entry
		lastRenderErr string
	}
)

func New(screen Screen) *Manager {
	return &Manager{screen: screen}
}

// AddResource appends a widget to the left side of the top row.
func (m *Manager) AddResource(name string, w widget.Widget) {
	m.resources = append(m.resources, &entry{name: name, widget: w})
}

// AddService appends a widget to the right side of the top row; each
// one sits to the left of the previous.
func (m *Manager) AddService(name string, w widget.Widget) {
	m.services = append(m.services, &entry{name: name, widget: w})
}

// AddText appends a widget to the bottom row.
func (m *Manager) AddText(name string, w widget.Widget) {
	m.texts = append(m.texts, &entry{name: name, widget: w})
}

func (m *Manager) entries() []*entry {
	all := make([]*entry, 0, len(m.resources)+len(m.services)+len(m.texts))
	all = append(all, m.resources...)
	all = append(all, m.services...)
	return append(all, m.texts...)
}

// Update refreshes every widget. A failing widget is reported once,
// and again only after it recovers and fails anew.
func (m *Manager) Update(ctx context.Context) {
	for _, e := range m.entries() {
		err := e.widget.Update(ctx)
		switch {
		case err != nil && err.Error() != e.lastErr:
			log.Printf("warning: %s: %v", e.name, err)
			e.lastErr = err.Error()
		case err == nil && e.lastErr != "":
			log.Printf("%s: recovered", e.name)
			e.lastErr = ""
		}
	}
}

// Frame draws all widgets into a new canvas.
func (m *Manager) Frame() *widget.Canvas {
	c := widget.NewCanvas(m.screen.Bounds())
	width := c.Width()
	top, bottom := 0, c.Height()/2

	cursor := image.Pt(0, top)
	for _, e := range m.resources {
		cursor = clampX(e.widget.Render(c, cursor, widget.AlignLeft), width)
	}

	cursor = image.Pt(width, top)
	for _, e := range m.services {
		cursor = clampX(e.widget.Render(c, cursor, widget.AlignRight), width)
	}

	cursor = image.Pt(0, bottom)
	for _, e := range m.texts {
		cursor = clampX(e.widget.Render(c, cursor, widget.AlignLeft), width)
	}

	return c
}

// Render draws a frame and sends it to the screen.
func (m *Manager) Render() error {
	if err := m.screen.Show(m.Frame().Image()); err != nil {
		return fmt.Errorf("failed to render frame: %w", err)
	}
	return nil
}

// Tick updates every widget and then renders.
func (m *Manager) Tick(ctx context.Context) error {
	m.Update(ctx)
	return m.Render()
}

// Run ticks immediately and then once per interval until ctx is done,
// then blanks the screen. Render failures are logged and the loop
// carries on.
func (m *Manager) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		m.reportRender(m.Tick(ctx))

		select {
		case <-ctx.Done():
			if err := m.screen.ClearScreen(); err != nil {
				return fmt.Errorf("failed to clear display: %w", err)
			}
			return nil
		case <-ticker.C:
		}
	}
}

func (m *Manager) reportRender(err error) {
	switch {
	case err != nil && err.Error() != m.lastRenderErr:
		log.Printf("warning: %v", err)
		m.lastRenderErr = err.Error()
	case err == nil && m.lastRenderErr != "":
		log.Printf("display recovered")
		m.lastRenderErr = ""
	}
}

func clampX(p image.Point, width int) image.Point {
	p.X = min(max(p.X, 0), width)
	return p
}
