package media

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"sync"

	"github.com/bobarin/reelsmith/internal/models"
	"github.com/rs/zerolog"
)

// stderrTail bounds how much encoder output is kept for diagnostics.
const stderrTail = 16 * 1024

// ProgressFunc receives the encoded fraction in [0,1].
type ProgressFunc func(fraction float64)

// Encoder runs a single ffmpeg invocation.
type Encoder struct {
	ffmpegPath string
	log        zerolog.Logger
}

func NewEncoder(ffmpegPath string, log zerolog.Logger) *Encoder {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	return &Encoder{
		ffmpegPath: ffmpegPath,
		log:        log.With().Str("component", "encoder").Logger(),
	}
}

// Encode runs ffmpeg with args. args must include "-progress pipe:1" for
// progress callbacks; total is the expected output duration in seconds.
// A non-zero exit is an encode error carrying the tail of ffmpeg's stderr.
func (e *Encoder) Encode(ctx context.Context, args []string, total float64, onProgress ProgressFunc) error {
	cmd := exec.CommandContext(ctx, e.ffmpegPath, args...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return models.NewError(models.KindEncode, "ffmpeg stdout", err)
	}
	tail := &tailBuffer{max: stderrTail}
	cmd.Stderr = tail

	e.log.Debug().Strs("args", args).Msg("starting ffmpeg")

	if err := cmd.Start(); err != nil {
		return models.NewError(models.KindEncode, "start ffmpeg", err)
	}

	// Wait must not run before stdout is fully read.
	readProgress(stdout, total, onProgress)

	if err := cmd.Wait(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			err = fmt.Errorf("ffmpeg exited with code %d: %w", exitErr.ExitCode(), err)
		}
		return models.NewErrorDetail(models.KindEncode, "ffmpeg", err, tail.String())
	}

	if onProgress != nil {
		onProgress(1)
	}
	return nil
}

func readProgress(r io.Reader, total float64, onProgress ProgressFunc) {
	sc := bufio.NewScanner(r)
	last := -1.0
	for sc.Scan() {
		sec, ok := ParseProgressLine(sc.Text())
		if !ok || onProgress == nil || total <= 0 {
			continue
		}
		frac := sec / total
		if frac > 1 {
			frac = 1
		}
		// Report at most every 1%.
		if frac-last >= 0.01 {
			last = frac
			onProgress(frac)
		}
	}
	// Drain so ffmpeg never blocks on a full pipe.
	io.Copy(io.Discard, r)
}

// ParseProgressLine reads the encoded position (seconds) from one line of
// ffmpeg's -progress output.
func ParseProgressLine(line string) (float64, bool) {
	key, value, ok := strings.Cut(strings.TrimSpace(line), "=")
	if !ok {
		return 0, false
	}
	switch key {
	case "out_time_us", "out_time_ms":
		// out_time_ms is microseconds as well.
		v, err := strconv.ParseInt(value, 10, 64)
		if err != nil || v < 0 {
			return 0, false
		}
		return float64(v) / 1e6, true
	case "out_time":
		return parseClock(value)
	}
	return 0, false
}

func parseClock(v string) (float64, bool) {
	parts := strings.Split(v, ":")
	if len(parts) != 3 {
		return 0, false
	}
	h, err1 := strconv.Atoi(parts[0])
	m, err2 := strconv.Atoi(parts[1])
	s, err3 := strconv.ParseFloat(parts[2], 64)
	if err1 != nil || err2 != nil || err3 != nil || h < 0 {
		return 0, false
	}
	return float64(h)*3600 + float64(m)*60 + s, true
}

// tailBuffer keeps the last max bytes written to it.
type tailBuffer struct {
	mu  sync.Mutex
	max int
	buf []byte
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf = append(t.buf, p...)
	if over := len(t.buf) - t.max; over > 0 {
		t.buf = t.buf[over:]
	}
	return len(p), nil
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return string(t.buf)
}
