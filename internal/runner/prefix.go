package runner

import (
	"bytes"
	"hash/fnv"
	"io"
	"sync"

	"github.com/fatih/color"
)

var prefixPalette = []color.Attribute{
	color.FgCyan,
	color.FgMagenta,
	color.FgBlue,
	color.FgGreen,
	color.FgYellow,
	color.FgHiCyan,
	color.FgHiMagenta,
	color.FgHiBlue,
}

// prefixColor picks a stable color for a package name.
func prefixColor(name string, colorize bool) *color.Color {
	h := fnv.New32a()
	_, _ = h.Write([]byte(name))
	c := color.New(prefixPalette[h.Sum32()%uint32(len(prefixPalette))])
	if colorize {
		c.EnableColor()
	} else {
		c.DisableColor()
	}
	return c
}

// lockedWriter serializes whole-line writes from concurrent packages. The
// stdout and stderr writers of a Runner share one mutex.
type lockedWriter struct {
	mu *sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

// prefixWriter buffers partial lines and writes each complete line to out
// with the package prefix.
type prefixWriter struct {
	out    io.Writer
	prefix []byte
	buf    bytes.Buffer
}

func newPrefixWriter(out io.Writer, prefix string) *prefixWriter {
	return &prefixWriter{out: out, prefix: []byte(prefix)}
}

func (w *prefixWriter) Write(p []byte) (int, error) {
	w.buf.Write(p)
	for {
		i := bytes.IndexByte(w.buf.Bytes(), '\n')
		if i < 0 {
			break
		}
		line := w.buf.Next(i + 1)
		if err := w.emit(line); err != nil {
			return len(p), err
		}
	}
	return len(p), nil
}

// Flush writes a trailing partial line, if any.
func (w *prefixWriter) Flush() error {
	if w.buf.Len() == 0 {
		return nil
	}
	line := append(w.buf.Bytes(), '\n')
	w.buf.Reset()
	return w.emit(line)
}

func (w *prefixWriter) emit(line []byte) error {
	out := make([]byte, 0, len(w.prefix)+len(line))
	out = append(out, w.prefix...)
	out = append(out, line...)
	_, err := w.out.Write(out)
	return err
}
