package core

import (
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-runewidth"
	"golang.org/x/term"
)

// ProgressReporter receives download progress updates. received and total
// count the whole file, including bytes that were on disk before the transfer.
type ProgressReporter interface {
	OnStart(fileName string, offset, total int64)
	OnProgress(fileName string, received, total int64)
	OnComplete(fileName string, received int64, elapsed time.Duration)
}

// NoopProgressReporter discards all progress events.
type NoopProgressReporter struct{}

func (NoopProgressReporter) OnStart(string, int64, int64)            {}
func (NoopProgressReporter) OnProgress(string, int64, int64)         {}
func (NoopProgressReporter) OnComplete(string, int64, time.Duration) {}

const barWidth = 40

// ConsoleProgressReporter draws a single-line progress bar scaled to the
// bytes still missing when the transfer started, so a resumed download
// reports percentage, rate and ETA for this session only.
type ConsoleProgressReporter struct {
	writer  io.Writer
	width   int
	refresh time.Duration
	now     func() time.Time

	offset   int64
	last     int64
	start    time.Time
	lastDraw time.Time
	drawn    bool
}

// NewConsoleProgressReporter constructs a ConsoleProgressReporter writing to w (stdout when nil).
func NewConsoleProgressReporter(w io.Writer) *ConsoleProgressReporter {
	if w == nil {
		w = os.Stdout
	}
	return &ConsoleProgressReporter{
		writer:  w,
		width:   terminalWidth(w),
		refresh: 100 * time.Millisecond,
		now:     time.Now,
	}
}

func (c *ConsoleProgressReporter) OnStart(_ string, offset, _ int64) {
	c.offset = offset
	c.last = offset
	c.start = c.now()
	c.drawn = false
}

// OnProgress redraws the bar. Updates that do not advance past the last
// recorded position are ignored.
func (c *ConsoleProgressReporter) OnProgress(_ string, received, total int64) {
	if received <= c.last {
		return
	}
	c.last = received

	now := c.now()
	if c.drawn && received < total && now.Sub(c.lastDraw) < c.refresh {
		return
	}
	c.lastDraw = now
	c.drawn = true

	line := c.render(received, total, now.Sub(c.start))
	if c.width > 0 {
		line = runewidth.Truncate(line, c.width-1, "…")
		line = runewidth.FillRight(line, c.width-1)
	}
	fmt.Fprintf(c.writer, "\r%s", line)
}

func (c *ConsoleProgressReporter) OnComplete(string, int64, time.Duration) {
	if c.drawn {
		fmt.Fprintln(c.writer)
	}
	c.drawn = false
}

// render formats "[====----] 12 MiB/340 MiB 2.1 MiB/s 35% 48s remaining".
func (c *ConsoleProgressReporter) render(received, total int64, elapsed time.Duration) string {
	sessionTotal := total - c.offset
	sessionDone := received - c.offset

	ratio := 1.0
	if sessionTotal > 0 {
		ratio = math.Min(1, math.Max(0, float64(sessionDone)/float64(sessionTotal)))
	}

	filled := int(math.Round(ratio * barWidth))
	bar := strings.Repeat("=", filled) + strings.Repeat("-", barWidth-filled)

	secs := elapsed.Seconds()
	var rate float64
	if secs > 0 {
		rate = float64(sessionDone) / secs
	}

	eta := "--"
	if sessionDone > 0 && secs > 0 {
		remaining := secs * (float64(sessionTotal)/float64(sessionDone) - 1)
		eta = (time.Duration(math.Round(math.Max(0, remaining))) * time.Second).String()
	}

	return fmt.Sprintf("  [%s] %s/%s %s/s %3.0f%% %s remaining",
		bar,
		humanize.IBytes(uint64(max(received, 0))),
		humanize.IBytes(uint64(max(total, 0))),
		humanize.IBytes(uint64(rate)),
		ratio*100,
		eta,
	)
}

func terminalWidth(w io.Writer) int {
	file, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(file.Fd())) {
		return 0
	}
	width, _, err := term.GetSize(int(file.Fd()))
	if err != nil {
		return 0
	}
	return width
}

// ProgressReader wraps a reader to emit cumulative progress updates.
type ProgressReader struct {
	reader    io.Reader
	received  int64
	total     int64
	reporter  ProgressReporter
	fileName  string
	startTime time.Time
}

// NewProgressReader constructs a progress tracking reader. offset is the
// number of bytes already present before the first read.
func NewProgressReader(reader io.Reader, offset, total int64, reporter ProgressReporter, fileName string) *ProgressReader {
	if reporter == nil {
		reporter = NoopProgressReporter{}
	}

	pr := &ProgressReader{
		reader:    reader,
		received:  offset,
		total:     total,
		reporter:  reporter,
		fileName:  fileName,
		startTime: time.Now(),
	}

	reporter.OnStart(fileName, offset, total)
	return pr
}

// Read implements io.Reader and relays progress.
func (pr *ProgressReader) Read(p []byte) (int, error) {
	n, err := pr.reader.Read(p)
	if n > 0 {
		pr.received += int64(n)
		pr.reporter.OnProgress(pr.fileName, pr.received, pr.total)
	}
	return n, err
}

// Finish notifies the reporter that the transfer has ended.
func (pr *ProgressReader) Finish() {
	pr.reporter.OnComplete(pr.fileName, pr.received, time.Since(pr.startTime))
}
