package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/mkmtelecom/outagemon/internal/config"
	"github.com/mkmtelecom/outagemon/internal/state"
)

const (
	uiRefreshInterval = 500 * time.Millisecond
	nameColumnWidth   = 14
	statusColumnWidth = 6
)

// latencyLevels are the upper bounds, in milliseconds, for each strip rune
// below the tallest one.
var latencyLevels = []int64{20, 50, 100, 200, 400, 800}

// latencyRunes maps a latency level to a block character, fastest first.
var latencyRunes = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

const (
	failureRune = '×'
	unknownRune = '·'
)

// UI renders a full-screen latency strip per target.
type UI struct {
	cfg   config.GlobalOptions
	store *state.Store
}

// New returns a UI instance.
func New(cfg config.GlobalOptions, store *state.Store) *UI {
	return &UI{cfg: cfg, store: store}
}

// Run blocks until the context is cancelled or the user quits.
func (u *UI) Run(ctx context.Context) error {
	screen, err := tcell.NewScreen()
	if err != nil {
		return err
	}
	if err := screen.Init(); err != nil {
		return err
	}
	screen.HideCursor()
	defer screen.Fini()

	eventCh := make(chan tcell.Event, 1)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			ev := screen.PollEvent()
			if ev == nil {
				return
			}
			select {
			case eventCh <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()

	ticker := time.NewTicker(uiRefreshInterval)
	defer ticker.Stop()

	u.render(screen, u.store.Snapshot())
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-eventCh:
			switch ev := ev.(type) {
			case *tcell.EventKey:
				if ev.Key() == tcell.KeyCtrlC || ev.Rune() == 'q' {
					return context.Canceled
				}
			case *tcell.EventResize:
				screen.Sync()
			}
		case <-ticker.C:
			u.render(screen, u.store.Snapshot())
		}
	}
}

func (u *UI) render(screen tcell.Screen, snapshot []state.TargetStatus) {
	screen.Clear()
	width, height := screen.Size()
	if width < 20 || height < 5 {
		screen.Show()
		return
	}

	now := time.Now().Format("2006-01-02 15:04:05")
	header := fmt.Sprintf(" outagemon  updated %s  (q to quit)", now)
	drawText(screen, 0, 0, width, header, tcell.StyleDefault.Bold(true))

	legend := " latency: ▁ fast → █ slow | failure ×"
	drawText(screen, 0, 1, width, legend, tcell.StyleDefault.Foreground(tcell.ColorGray))

	info := fmt.Sprintf(" interval=%s timeout=%s loss_threshold=%d recovery_threshold=%d",
		u.cfg.Interval, u.cfg.Timeout, u.cfg.LossThreshold, u.cfg.RecoveryThreshold)
	drawText(screen, 0, 2, width, info, tcell.StyleDefault.Foreground(tcell.ColorGray))

	rowY := 4
	for _, target := range snapshot {
		if rowY >= height-1 {
			break
		}
		drawCells(screen, 0, rowY, width, u.formatTargetRow(width, target))
		rowY++
	}

	screen.Show()
}

// cell is one positioned rune with a style.
type cell struct {
	r     rune
	style tcell.Style
}

func (u *UI) formatTargetRow(width int, target state.TargetStatus) []cell {
	row := make([]cell, 0, width)
	row = appendText(row, padOrTrim(target.Name, nameColumnWidth), tcell.StyleDefault)
	row = appendText(row, " ", tcell.StyleDefault)
	row = appendText(row, padOrTrim(string(target.Status), statusColumnWidth), statusStyle(target.Status))
	row = appendText(row, " ", tcell.StyleDefault)

	stripWidth := width - len(row)
	if stripWidth > 0 {
		row = append(row, historyStrip(target.History, stripWidth)...)
	}
	if len(row) > width {
		row = row[:width]
	}
	return row
}

// historyStrip renders the newest samples right-aligned, left-padded with the
// unknown placeholder when the buffer has not filled the width yet.
func historyStrip(samples []state.Sample, width int) []cell {
	strip := make([]cell, 0, width)
	if len(samples) > width {
		samples = samples[len(samples)-width:]
	}
	for pad := width - len(samples); pad > 0; pad-- {
		strip = append(strip, cell{r: unknownRune, style: tcell.StyleDefault.Foreground(tcell.ColorGray)})
	}
	for _, sample := range samples {
		strip = append(strip, sampleCell(sample))
	}
	return strip
}

func sampleCell(sample state.Sample) cell {
	if sample.Failed {
		return cell{r: failureRune, style: tcell.StyleDefault.Foreground(tcell.ColorRed)}
	}
	return cell{r: levelRune(sample.Latency), style: latencyStyle(sample.Latency)}
}

func levelRune(latency time.Duration) rune {
	ms := latency.Milliseconds()
	for i, bound := range latencyLevels {
		if ms <= bound {
			return latencyRunes[i]
		}
	}
	return latencyRunes[len(latencyRunes)-1]
}

func latencyStyle(latency time.Duration) tcell.Style {
	ms := latency.Milliseconds()
	switch {
	case ms <= 50:
		return tcell.StyleDefault.Foreground(tcell.ColorGreen)
	case ms <= 200:
		return tcell.StyleDefault.Foreground(tcell.ColorYellow)
	default:
		return tcell.StyleDefault.Foreground(tcell.ColorRed)
	}
}

func statusStyle(status state.Status) tcell.Style {
	switch status {
	case state.StatusUp:
		return tcell.StyleDefault.Foreground(tcell.ColorGreen)
	case state.StatusDown:
		return tcell.StyleDefault.Foreground(tcell.ColorRed)
	default:
		return tcell.StyleDefault.Foreground(tcell.ColorGray)
	}
}

func appendText(row []cell, text string, style tcell.Style) []cell {
	for _, r := range text {
		row = append(row, cell{r: r, style: style})
	}
	return row
}

func drawCells(screen tcell.Screen, x, y, width int, cells []cell) {
	col := x
	for _, c := range cells {
		if col >= x+width {
			return
		}
		screen.SetContent(col, y, c.r, nil, c.style)
		col++
	}
	for col < x+width {
		screen.SetContent(col, y, ' ', nil, tcell.StyleDefault)
		col++
	}
}

func drawText(screen tcell.Screen, x, y, width int, text string, style tcell.Style) {
	drawCells(screen, x, y, width, appendText(nil, text, style))
}

func padOrTrim(value string, width int) string {
	if width <= 0 {
		return ""
	}
	runes := []rune(value)
	if len(runes) > width {
		return string(runes[:width])
	}
	if len(runes) < width {
		return value + strings.Repeat(" ", width-len(runes))
	}
	return value
}
