package fakedriver

import (
	"bytes"
	"embed"
	"encoding/base64"
	"fmt"
	"html/template"
	"image"
	"image/color"
	"image/png"
	"log"
	"net"
	"net/http"
	"os"
	"strconv"
	"sync"
)

//go:embed display.html
var displayTemplate embed.FS

var (
	pixelOn  = color.RGBA{255, 255, 255, 255}
	pixelOff = color.RGBA{0, 0, 0, 255}
)

// FakeSSD1306 renders frames into an in-memory buffer and serves them
// to a browser, pushing each new frame over server-sent events.
type FakeSSD1306 struct {
	bounds        image.Rectangle
	mutex         sync.Mutex
	buffer        *image.RGBA
	server        *http.Server
	listener      net.Listener
	listenAddress string
	port          uint
	scale         int
	clients       map[chan string]bool
}

func getEnvWithDefault(name, defval string) string {
	val := os.Getenv(name)
	if val == "" {
		return defval
	}
	return val
}

// NewFakeSSD1306 listens on $FAKESSD1306_LISTEN_ADDRESS and
// $FAKESSD1306_PORT (default 127.0.0.1:8080) unless WithListenAddress or
// WithPort override them.
func NewFakeSSD1306(width, height int) *FakeSSD1306 {
	listenAddress := getEnvWithDefault("FAKESSD1306_LISTEN_ADDRESS", "127.0.0.1")
	portStr := getEnvWithDefault("FAKESSD1306_PORT", "8080")

	port, err := strconv.ParseUint(portStr, 10, 32)
	if err != nil {
		port = 8080
		log.Printf("invalid port %s: using default port %d", portStr, port)
	}

	return &FakeSSD1306{
		bounds:        image.Rect(0, 0, width, height),
		listenAddress: listenAddress,
		port:          uint(port),
		scale:         4,
		clients:       make(map[chan string]bool),
	}
}

func (d *FakeSSD1306) WithPort(port uint) *FakeSSD1306 {
	d.port = port
	return d
}

func (d *FakeSSD1306) WithListenAddress(addr string) *FakeSSD1306 {
	d.listenAddress = addr
	return d
}

// WithScale sets how many screen pixels the browser uses per panel pixel.
func (d *FakeSSD1306) WithScale(scale int) *FakeSSD1306 {
	if scale > 0 {
		d.scale = scale
	}
	return d
}

// Addr returns the address the simulator is listening on, or "" before Open.
func (d *FakeSSD1306) Addr() string {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if d.listener == nil {
		return ""
	}
	return d.listener.Addr().String()
}

func (d *FakeSSD1306) Open() error {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	d.buffer = image.NewRGBA(d.bounds)
	fill(d.buffer, pixelOff)

	ln, err := net.Listen("tcp", fmt.Sprintf("%s:%d", d.listenAddress, d.port))
	if err != nil {
		return fmt.Errorf("failed to start display simulator: %w", err)
	}
	d.listener = ln

	d.server = &http.Server{
		Handler: d.Handler(),
	}

	go func(srv *http.Server) {
		log.Printf("SSD1306 display simulator running at http://%s", ln.Addr())
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			log.Printf("HTTP server error: %v", err)
		}
	}(d.server)

	return nil
}

func (d *FakeSSD1306) Close() error {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if d.server != nil {
		// Clear clients map without closing channels; handlers close their own.
		d.clients = make(map[chan string]bool)

		err := d.server.Close()
		d.server = nil
		d.listener = nil
		return err
	}
	return nil
}

func (d *FakeSSD1306) Bounds() image.Rectangle {
	return d.bounds
}

func (d *FakeSSD1306) Draw(r image.Rectangle, src image.Image, sp image.Point) error {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if d.buffer == nil {
		return fmt.Errorf("display not initialized")
	}

	sb := src.Bounds()
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			srcX := sp.X + (x - r.Min.X)
			srcY := sp.Y + (y - r.Min.Y)

			if !(image.Point{srcX, srcY}).In(sb) {
				continue
			}

			// Same threshold the ssd1306 driver applies to non 1-bit sources.
			gray := color.GrayModel.Convert(src.At(srcX, srcY)).(color.Gray)
			if gray.Y >= 128 {
				d.buffer.Set(x, y, pixelOn)
			} else {
				d.buffer.Set(x, y, pixelOff)
			}
		}
	}

	d.notifyClients()

	return nil
}

// Snapshot returns a copy of the current frame.
func (d *FakeSSD1306) Snapshot() *image.RGBA {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	img := image.NewRGBA(d.bounds)
	if d.buffer != nil {
		copy(img.Pix, d.buffer.Pix)
	}
	return img
}

// Handler returns the simulator's HTTP routes.
func (d *FakeSSD1306) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", d.handleDisplay)
	mux.HandleFunc("/events", d.handleSSE)
	mux.HandleFunc("/frame.png", d.handleFrame)
	return mux
}

// encodeFrame must be called with the mutex held.
func (d *FakeSSD1306) encodeFrame() (string, error) {
	var buf bytes.Buffer
	if d.buffer == nil {
		return "", fmt.Errorf("display not initialized")
	}
	if err := png.Encode(&buf, d.buffer); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

func (d *FakeSSD1306) notifyClients() {
	b64, err := d.encodeFrame()
	if err != nil {
		return
	}

	for client := range d.clients {
		select {
		case client <- b64:
		default:
			// Slow client; it will pick up the next frame.
		}
	}
}

func (d *FakeSSD1306) handleDisplay(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	d.mutex.Lock()
	b64, err := d.encodeFrame()
	d.mutex.Unlock()
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	tmpl, err := template.ParseFS(displayTemplate, "display.html")
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	data := struct {
		ImageData string
		Width     int
		Height    int
	}{
		ImageData: b64,
		Width:     d.bounds.Dx() * d.scale,
		Height:    d.bounds.Dy() * d.scale,
	}

	w.Header().Set("Content-Type", "text/html")
	if err := tmpl.Execute(w, data); err != nil {
		log.Printf("failed to render template: %v", err)
	}
}

func (d *FakeSSD1306) handleFrame(w http.ResponseWriter, r *http.Request) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if d.buffer == nil {
		http.Error(w, "display not initialized", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	if err := png.Encode(w, d.buffer); err != nil {
		log.Printf("failed to encode frame: %v", err)
	}
}

func (d *FakeSSD1306) handleSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	clientChan := make(chan string, 10)

	d.mutex.Lock()
	d.clients[clientChan] = true
	if b64, err := d.encodeFrame(); err == nil {
		clientChan <- b64
	}
	d.mutex.Unlock()

	defer func() {
		d.mutex.Lock()
		delete(d.clients, clientChan)
		d.mutex.Unlock()
	}()

	for {
		select {
		case data := <-clientChan:
			if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
				return
			}
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}

func fill(img *image.RGBA, c color.RGBA) {
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			img.SetRGBA(x, y, c)
		}
	}
}
