package prompt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Prompt writes a label and reads one line of answer.
type Prompt struct {
	r *bufio.Reader
	w io.Writer
}

func New(r io.Reader, w io.Writer) *Prompt {
	br, ok := r.(*bufio.Reader)
	if !ok {
		br = bufio.NewReader(r)
	}
	return &Prompt{r: br, w: w}
}

// Out is the writer prompts are printed to.
func (p *Prompt) Out() io.Writer { return p.w }

func (p *Prompt) Printf(format string, args ...any) {
	fmt.Fprintf(p.w, format, args...)
}

// Line prints label and returns the next line without its line ending.
// It returns io.EOF only when no input is left at all.
func (p *Prompt) Line(label string) (string, error) {
	if label != "" {
		fmt.Fprint(p.w, label)
	}
	s, err := p.r.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && s != "" {
			err = nil
		} else {
			return "", err
		}
	}
	return strings.TrimRight(s, "\r\n"), nil
}

// Int reads a line and parses it as an integer.
func (p *Prompt) Int(label string) (int, error) {
	s, err := p.Line(label)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("not a number: %q", s)
	}
	return n, nil
}
