package tui

import "io"

// keyEvent is a decoded keypress. Printable keys are their rune value;
// control and arrow keys use the negative range.
type keyEvent rune

const (
	keyEscape keyEvent = 27
	keyEnter  keyEvent = 13
	keyUp     keyEvent = -1
	keyDown   keyEvent = -2

	// keyQuit is emitted for ctrl-c and quits from any view, modal included
	keyQuit keyEvent = -3
)

// readKeys decodes raw terminal input into key events until the reader is
// closed. Arrow keys arrive as ESC [ A/B sequences.
func readKeys(in io.Reader, out chan<- keyEvent) {
	defer close(out)

	buf := make([]byte, 3)
	for {
		n, err := in.Read(buf)
		if err != nil {
			return
		}
		if n == 0 {
			continue
		}

		switch {
		case n >= 3 && buf[0] == 0x1b && buf[1] == '[':
			switch buf[2] {
			case 'A':
				out <- keyUp
			case 'B':
				out <- keyDown
			}
		case buf[0] == 0x1b:
			out <- keyEscape
		case buf[0] == '\r' || buf[0] == '\n':
			out <- keyEnter
		case buf[0] == 0x03:
			out <- keyQuit
		default:
			out <- keyEvent(buf[0])
		}
	}
}
