package display

import (
	"fmt"
	"image"
	"strings"
	"testing"

	"golang.org/x/image/font/basicfont"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/devices/v3/ssd1306/image1bit"
)

// Call represents a method call on the mock
type Call struct {
	Method string
	Args   []interface{}
}

// TrackedFakeSSD1306 records every call made by the display
type TrackedFakeSSD1306 struct {
	*DiscardSSD1306
	Calls        []Call
	ErrorOnOpen  bool
	ErrorOnClose bool
	ErrorOnDraw  bool
}

func NewTrackedFakeSSD1306() *TrackedFakeSSD1306 {
	return &TrackedFakeSSD1306{
		DiscardSSD1306: NewDiscardSSD1306(DEFAULT_WIDTH, DEFAULT_HEIGHT),
		Calls:          make([]Call, 0),
	}
}

func (t *TrackedFakeSSD1306) Open() error {
	t.Calls = append(t.Calls, Call{Method: "Open", Args: nil})
	if t.ErrorOnOpen {
		return fmt.Errorf("mock open error")
	}
	return nil
}

func (t *TrackedFakeSSD1306) Close() error {
	t.Calls = append(t.Calls, Call{Method: "Close", Args: nil})
	if t.ErrorOnClose {
		return fmt.Errorf("mock close error")
	}
	return nil
}

func (t *TrackedFakeSSD1306) Draw(r image.Rectangle, src image.Image, sp image.Point) error {
	t.Calls = append(t.Calls, Call{Method: "Draw", Args: []interface{}{r, src, sp}})
	if t.ErrorOnDraw {
		return fmt.Errorf("mock draw error")
	}
	return nil
}

func (t *TrackedFakeSSD1306) WasCalled(method string) bool {
	return t.CallCount(method) > 0
}

func (t *TrackedFakeSSD1306) CallCount(method string) int {
	count := 0
	for _, call := range t.Calls {
		if call.Method == method {
			count++
		}
	}
	return count
}

func (t *TrackedFakeSSD1306) LastDrawArgs() (image.Rectangle, image.Image, image.Point) {
	for i := len(t.Calls) - 1; i >= 0; i-- {
		if t.Calls[i].Method == "Draw" && len(t.Calls[i].Args) == 3 {
			return t.Calls[i].Args[0].(image.Rectangle),
				t.Calls[i].Args[1].(image.Image),
				t.Calls[i].Args[2].(image.Point)
		}
	}
	return image.Rectangle{}, nil, image.Point{}
}

func assertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Errorf("Expected no error but got: %v", err)
	}
}

func assertError(t *testing.T, err error, expectedSubstr string) {
	t.Helper()
	if err == nil {
		t.Error("Expected error but got none")
	} else if expectedSubstr != "" && !strings.Contains(err.Error(), expectedSubstr) {
		t.Errorf("Expected error to contain %q, got %q", expectedSubstr, err.Error())
	}
}

func newInitializedDisplay(t *testing.T, mock *TrackedFakeSSD1306) *Display {
	t.Helper()
	d, err := NewDisplay().WithBusName("/dev/i2c-0").WithDriver(mock).Build()
	if err != nil {
		t.Fatalf("Failed to build display: %v", err)
	}
	if err := d.Init(); err != nil {
		t.Fatalf("Failed to initialize display: %v", err)
	}
	return d
}

func countLit(img image.Image) int {
	lit := 0
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if img.At(x, y) == image1bit.On {
				lit++
			}
		}
	}
	return lit
}

func TestDisplay_Build(t *testing.T) {
	tests := []struct {
		name      string
		width     int
		height    int
		wantError bool
	}{
		{name: "default panel", width: 128, height: 32},
		{name: "tall panel", width: 128, height: 64},
		{name: "zero width", width: 0, height: 32, wantError: true},
		{name: "negative height", width: 128, height: -1, wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := NewDisplay().WithSize(tt.width, tt.height).Build()
			if tt.wantError {
				assertError(t, err, "invalid display size")
				return
			}
			assertNoError(t, err)

			if d.font == nil {
				t.Error("Expected default font to be set")
			}
			expectedHeight := basicfont.Face7x13.Metrics().Height.Ceil()
			if d.lineHeight != expectedHeight {
				t.Errorf("Expected lineHeight to be %d, got %d", expectedHeight, d.lineHeight)
			}
			if got := d.Bounds(); got != image.Rect(0, 0, tt.width, tt.height) {
				t.Errorf("Expected bounds %v before init, got %v", image.Rect(0, 0, tt.width, tt.height), got)
			}
		})
	}
}

func TestDisplay_Init(t *testing.T) {
	tests := []struct {
		name        string
		setupMock   func(*TrackedFakeSSD1306)
		wantError   bool
		errorSubstr string
	}{
		{
			name:      "successful init",
			setupMock: func(mock *TrackedFakeSSD1306) {},
		},
		{
			name: "device open error",
			setupMock: func(mock *TrackedFakeSSD1306) {
				mock.ErrorOnOpen = true
			},
			wantError:   true,
			errorSubstr: "failed to initialize device",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := NewTrackedFakeSSD1306()
			tt.setupMock(mock)

			d, err := NewDisplay().WithDriver(mock).Build()
			assertNoError(t, err)

			err = d.Init()
			if tt.wantError {
				assertError(t, err, tt.errorSubstr)
				if d.initialized {
					t.Error("Expected display to stay uninitialized")
				}
				return
			}
			assertNoError(t, err)
			if !mock.WasCalled("Open") {
				t.Error("Expected Open to be called")
			}
		})
	}
}

func TestDisplay_InitCreatesRealDriver(t *testing.T) {
	d, err := NewDisplay().WithBusName("/dev/i2c-does-not-exist").Build()
	assertNoError(t, err)

	// There is no bus in the test environment, only the driver choice matters.
	_ = d.Init()

	if _, ok := d.driver.(*RealSSD1306); !ok {
		t.Errorf("Expected a *RealSSD1306 driver, got %T", d.driver)
	}
}

func TestDisplay_Close(t *testing.T) {
	tests := []struct {
		name        string
		shouldError bool
	}{
		{name: "successful close"},
		{name: "close with error", shouldError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := NewTrackedFakeSSD1306()
			mock.ErrorOnClose = tt.shouldError
			d := newInitializedDisplay(t, mock)

			err := d.Close()
			if tt.shouldError {
				assertError(t, err, "mock close error")
			} else {
				assertNoError(t, err)
			}
			if !mock.WasCalled("Close") {
				t.Error("Expected Close to be called")
			}

			// A second close is a no-op.
			assertNoError(t, d.Close())
			if mock.CallCount("Close") != 1 {
				t.Errorf("Expected Close to be called once, got %d", mock.CallCount("Close"))
			}
		})
	}
}

func TestDisplay_NotInitialized(t *testing.T) {
	d, err := NewDisplay().WithDriver(NewTrackedFakeSSD1306()).Build()
	assertNoError(t, err)

	assertError(t, d.Show(image1bit.NewVerticalLSB(d.Bounds())), "not been initialized")
	assertError(t, d.ClearScreen(), "not been initialized")
	assertError(t, d.ShowLines([]string{"x"}), "not been initialized")
	assertNoError(t, d.Close())
}

func TestDisplay_Show(t *testing.T) {
	tests := []struct {
		name        string
		drawError   bool
		errorSubstr string
	}{
		{name: "successful show"},
		{name: "draw error", drawError: true, errorSubstr: "failed to draw on display"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := NewTrackedFakeSSD1306()
			mock.ErrorOnDraw = tt.drawError
			d := newInitializedDisplay(t, mock)

			frame := image1bit.NewVerticalLSB(d.Bounds())
			frame.SetBit(3, 3, image1bit.On)

			err := d.Show(frame)
			if tt.drawError {
				assertError(t, err, tt.errorSubstr)
				return
			}
			assertNoError(t, err)

			r, src, sp := mock.LastDrawArgs()
			if r != mock.Bounds() {
				t.Errorf("Expected draw rect %v, got %v", mock.Bounds(), r)
			}
			if src != image.Image(frame) {
				t.Error("Expected the frame to be passed through to the driver")
			}
			if sp != (image.Point{}) {
				t.Errorf("Expected zero source point, got %v", sp)
			}
		})
	}
}

func TestDisplay_ClearScreen(t *testing.T) {
	mock := NewTrackedFakeSSD1306()
	d := newInitializedDisplay(t, mock)

	assertNoError(t, d.ClearScreen())

	_, src, _ := mock.LastDrawArgs()
	if src == nil {
		t.Fatal("Expected a frame to be drawn")
	}
	if lit := countLit(src); lit != 0 {
		t.Errorf("Expected a blank frame, got %d lit pixels", lit)
	}
}

func TestDisplay_ShowLines(t *testing.T) {
	mock := NewTrackedFakeSSD1306()
	d := newInitializedDisplay(t, mock)

	limit := d.MaxLines()
	if limit != DEFAULT_HEIGHT/basicfont.Face7x13.Metrics().Height.Ceil() {
		t.Fatalf("Unexpected MaxLines %d", limit)
	}

	tests := []struct {
		name      string
		lines     []string
		wantError bool
		wantLit   bool
	}{
		{name: "single line", lines: []string{"Hello"}, wantLit: true},
		{name: "fills display", lines: make([]string, limit), wantLit: false},
		{name: "overflow", lines: make([]string, limit+1), wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := mock.CallCount("Draw")
			err := d.ShowLines(tt.lines)
			if tt.wantError {
				assertError(t, err, "text requires more than")
				if mock.CallCount("Draw") != before {
					t.Error("Expected no draw on overflow")
				}
				return
			}
			assertNoError(t, err)

			_, src, _ := mock.LastDrawArgs()
			if lit := countLit(src); (lit > 0) != tt.wantLit {
				t.Errorf("Expected lit pixels=%v, got %d", tt.wantLit, lit)
			}
		})
	}
}

func TestAddressedBus(t *testing.T) {
	inner := &recordingBus{}
	b := &addressedBus{Bus: inner, addr: 0x3D}

	assertNoError(t, b.Tx(DefaultAddress, []byte{0x00}, nil))
	if inner.lastAddr != 0x3D {
		t.Errorf("Expected transaction to 0x3d, got 0x%02x", inner.lastAddr)
	}
	if got := b.String(); got != "fake@0x3d" {
		t.Errorf("Unexpected bus name %q", got)
	}
}

type recordingBus struct {
	lastAddr uint16
}

func (b *recordingBus) String() string {
	return "fake"
}

func (b *recordingBus) Tx(addr uint16, w, r []byte) error {
	b.lastAddr = addr
	return nil
}

func (b *recordingBus) SetSpeed(f physic.Frequency) error {
	return nil
}
