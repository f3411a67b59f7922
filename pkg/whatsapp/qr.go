package whatsapp

import (
	"io"

	"github.com/mdp/qrterminal/v3"
)

// TerminalRenderer draws pairing codes as half-block QR codes
type TerminalRenderer struct {
	out io.Writer
}

// NewTerminalRenderer creates a renderer writing to out
func NewTerminalRenderer(out io.Writer) *TerminalRenderer {
	return &TerminalRenderer{out: out}
}

func (r *TerminalRenderer) Render(code string) {
	qrterminal.GenerateHalfBlock(code, qrterminal.L, r.out)
}
