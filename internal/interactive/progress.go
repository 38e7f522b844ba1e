package interactive

import (
	"fmt"
	"strings"
)

const barWidth = 30

type progressState struct {
	drawn   bool
	percent int
}

func (p *progressState) reset() {
	p.drawn = false
	p.percent = -1
}

// SetProgress renders a download fraction. On a TTY the bar is redrawn in
// place; otherwise a line is printed every ten percent.
func (t *Terminal) SetProgress(fraction float64) {
	if fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}
	percent := int(fraction * 100)

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.tty {
		if percent == t.progress.percent {
			return
		}
		filled := int(fraction * barWidth)
		_, _ = fmt.Fprintf(t.out, "\rDownloading [%s%s] %3d%%",
			strings.Repeat("#", filled), strings.Repeat(" ", barWidth-filled), percent)
		t.progress.drawn = true
		t.progress.percent = percent
		return
	}

	step := percent / 10 * 10
	if step <= t.progress.percent {
		return
	}
	_, _ = fmt.Fprintf(t.out, "Downloading... %d%%\n", step)
	t.progress.percent = step
}

// ClearProgress ends the current bar and resets the high-water mark.
func (t *Terminal) ClearProgress() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.endBarLocked()
	t.progress.reset()
}

// endBarLocked moves past an in-place bar so following output starts on a
// fresh line. t.mu must be held.
func (t *Terminal) endBarLocked() {
	if t.progress.drawn {
		_, _ = fmt.Fprintln(t.out)
		t.progress.drawn = false
	}
}
