// Command fireview renders a running firesim lattice in the terminal.
// It polls the frame endpoint and paints one character cell per lattice
// cell: color by material, brightness by temperature, flames for burning
// cells and ash for burned ones. Click a cell, or move the cursor with
// arrows/hjkl and press enter, to ignite it.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/talgya/firefront/internal/grid"
	"github.com/talgya/firefront/internal/material"
)

const (
	pollInterval   = 100 * time.Millisecond
	statusInterval = 1 * time.Second
)

type latticeStatus struct {
	Tick         uint64  `json:"tick"`
	SimTime      float64 `json:"sim_time_seconds"`
	Speed        float64 `json:"speed"`
	BurningCells int     `json:"burning_cells"`
	BurnedCells  int     `json:"burned_cells"`
}

type viewer struct {
	screen  tcell.Screen
	baseURL string
	client  *http.Client

	frame      *grid.Frame
	stat       latticeStatus
	lastStatus time.Time
	cursorR    int
	cursorC    int
	message    string
}

func newViewer(baseURL string) (*viewer, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, err
	}
	if err := screen.Init(); err != nil {
		return nil, err
	}
	screen.EnableMouse()

	return &viewer{
		screen:  screen,
		baseURL: baseURL,
		client:  &http.Client{Timeout: 5 * time.Second},
	}, nil
}

func (v *viewer) getJSON(path string, into any) error {
	resp, err := v.client.Get(v.baseURL + path)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server returned %d", resp.StatusCode)
	}
	return json.Unmarshal(body, into)
}

func (v *viewer) fetchFrame() {
	var frame grid.Frame
	if err := v.getJSON("/api/v1/frame", &frame); err != nil {
		v.message = fmt.Sprintf("frame fetch failed: %v", err)
		return
	}
	v.frame = &frame
	if v.cursorR >= frame.Height {
		v.cursorR = frame.Height - 1
	}
	if v.cursorC >= frame.Width {
		v.cursorC = frame.Width - 1
	}
}

func (v *viewer) fetchStatus() {
	if time.Since(v.lastStatus) < statusInterval {
		return
	}
	v.lastStatus = time.Now()
	if err := v.getJSON("/api/v1/status", &v.stat); err != nil {
		v.message = fmt.Sprintf("status fetch failed: %v", err)
	}
}

func (v *viewer) ignite(row, col int) {
	payload, _ := json.Marshal(map[string]any{"row": row, "col": col})
	resp, err := v.client.Post(v.baseURL+"/api/v1/ignite", "application/json", bytes.NewReader(payload))
	if err != nil {
		v.message = fmt.Sprintf("ignite failed: %v", err)
		return
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		v.message = fmt.Sprintf("ignite rejected: %d", resp.StatusCode)
		return
	}
	v.message = fmt.Sprintf("ignited %d,%d", row, col)
}

// materialColors indexes by material ID.
var materialColors = map[material.ID]tcell.Color{
	material.Grass: tcell.ColorGreen,
	material.Wood:  tcell.ColorSaddleBrown,
	material.Fuel:  tcell.ColorPurple,
	material.Water: tcell.ColorBlue,
}

// cellStyle picks the glyph and style for one lattice cell.
func cellStyle(f *grid.Frame, i int) (rune, tcell.Style) {
	if f.Burned[i] {
		return '░', tcell.StyleDefault.Foreground(tcell.ColorGray)
	}
	if f.Burning[i] {
		// Hotter flames render brighter.
		if f.Temp[i] > 800 {
			return '▲', tcell.StyleDefault.Foreground(tcell.ColorYellow).Background(tcell.ColorRed)
		}
		return '▲', tcell.StyleDefault.Foreground(tcell.ColorRed)
	}

	color, ok := materialColors[f.Materials[i]]
	if !ok {
		color = tcell.ColorWhite
	}
	style := tcell.StyleDefault.Foreground(color)

	// Warm cells glow before igniting.
	switch {
	case f.Temp[i] > 200:
		return '▒', style.Background(tcell.ColorDarkRed)
	case f.Temp[i] > 80:
		return '▒', style
	default:
		return '█', style.Dim(true)
	}
}

func (v *viewer) draw() {
	v.screen.Clear()

	if v.frame == nil {
		drawText(v.screen, 0, 0, tcell.StyleDefault, "waiting for frame... "+v.message)
		v.screen.Show()
		return
	}

	f := v.frame
	sw, sh := v.screen.Size()
	rows := f.Height
	if rows > sh-1 {
		rows = sh - 1
	}
	cols := f.Width
	if cols > sw {
		cols = sw
	}

	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			ch, style := cellStyle(f, row*f.Width+col)
			if row == v.cursorR && col == v.cursorC {
				style = style.Reverse(true)
			}
			v.screen.SetContent(col, row, ch, nil, style)
		}
	}

	bar := fmt.Sprintf(" tick %d | t=%.1fs | x%.1f | burning %d | burned %d | enter/click ignites, q quits  %s",
		v.stat.Tick, v.stat.SimTime, v.stat.Speed, v.stat.BurningCells, v.stat.BurnedCells, v.message)
	drawText(v.screen, 0, sh-1, tcell.StyleDefault.Reverse(true), bar)

	v.screen.Show()
}

func drawText(s tcell.Screen, x, y int, style tcell.Style, text string) {
	for i, r := range text {
		s.SetContent(x+i, y, r, nil, style)
	}
}

func (v *viewer) moveCursor(dr, dc int) {
	if v.frame == nil {
		return
	}
	v.cursorR += dr
	v.cursorC += dc
	if v.cursorR < 0 {
		v.cursorR = 0
	}
	if v.cursorR >= v.frame.Height {
		v.cursorR = v.frame.Height - 1
	}
	if v.cursorC < 0 {
		v.cursorC = 0
	}
	if v.cursorC >= v.frame.Width {
		v.cursorC = v.frame.Width - 1
	}
}

// handleKey returns false when the viewer should quit.
func (v *viewer) handleKey(ev *tcell.EventKey) bool {
	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return false
	case tcell.KeyUp:
		v.moveCursor(-1, 0)
	case tcell.KeyDown:
		v.moveCursor(1, 0)
	case tcell.KeyLeft:
		v.moveCursor(0, -1)
	case tcell.KeyRight:
		v.moveCursor(0, 1)
	case tcell.KeyEnter:
		v.ignite(v.cursorR, v.cursorC)
	case tcell.KeyRune:
		switch ev.Rune() {
		case 'q':
			return false
		case 'k':
			v.moveCursor(-1, 0)
		case 'j':
			v.moveCursor(1, 0)
		case 'h':
			v.moveCursor(0, -1)
		case 'l':
			v.moveCursor(0, 1)
		case ' ':
			v.ignite(v.cursorR, v.cursorC)
		}
	}
	return true
}

func (v *viewer) run() {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	eventChan := make(chan tcell.Event, 16)
	go func() {
		for {
			eventChan <- v.screen.PollEvent()
		}
	}()

	for {
		select {
		case ev := <-eventChan:
			switch ev := ev.(type) {
			case *tcell.EventKey:
				if !v.handleKey(ev) {
					return
				}
			case *tcell.EventMouse:
				if ev.Buttons()&tcell.Button1 != 0 && v.frame != nil {
					col, row := ev.Position()
					if row < v.frame.Height && col < v.frame.Width {
						v.cursorR, v.cursorC = row, col
						v.ignite(row, col)
					}
				}
			case *tcell.EventResize:
				v.screen.Sync()
			}

		case <-ticker.C:
			v.fetchFrame()
			v.fetchStatus()
			v.draw()
		}
	}
}

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "firesim API base URL")
	flag.Parse()

	v, err := newViewer(*baseURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "terminal init failed: %v\n", err)
		os.Exit(1)
	}
	defer v.screen.Fini()

	v.run()
}
