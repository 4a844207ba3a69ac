package logger

import (
	"fmt"
	"io"
	"log"
	"strings"
	"sync"
)

var (
	programMu  sync.Mutex
	programLog *log.Logger
)

// SetProgramWriter routes program log lines to a dedicated sink (nil disables it).
func SetProgramWriter(w io.Writer) {
	programMu.Lock()
	defer programMu.Unlock()
	if w == nil {
		programLog = nil
		return
	}
	programLog = log.New(w, "", log.LstdFlags)
}

func writeProgramLine(tx, line string) {
	programMu.Lock()
	l := programLog
	programMu.Unlock()
	if l == nil {
		return
	}
	var b strings.Builder
	b.WriteString("[PROGRAM]")
	if tx != "" {
		b.WriteString("[")
		b.WriteString(tx)
		b.WriteString("]")
	}
	b.WriteString(" ")
	b.WriteString(line)
	l.Print(b.String())
}

// ProgramLog collects the observational lines a single transaction emits so
// they can be returned in its receipt. Not safe for concurrent use.
type ProgramLog struct {
	tx    string
	lines []string
}

func NewProgramLog(tx string) *ProgramLog {
	return &ProgramLog{tx: tx}
}

func (p *ProgramLog) Logf(format string, v ...any) {
	line := fmt.Sprintf(format, v...)
	if p != nil {
		p.lines = append(p.lines, "Program log: "+line)
		writeProgramLine(p.tx, line)
	}
	Debugf("program: %s", line)
}

// Lines returns a copy of the collected lines.
func (p *ProgramLog) Lines() []string {
	if p == nil || len(p.lines) == 0 {
		return nil
	}
	out := make([]string, len(p.lines))
	copy(out, p.lines)
	return out
}

// Emit records a runtime line verbatim, without the program log prefix.
func (p *ProgramLog) Emit(line string) {
	if p == nil {
		return
	}
	p.lines = append(p.lines, line)
	writeProgramLine(p.tx, line)
}
