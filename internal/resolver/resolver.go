// Package resolver maps activity names to capture file paths.
package resolver

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrUnresolved is returned when no path is known for an activity.
var ErrUnresolved = errors.New("no path for activity")

// Resolver returns the capture file path for an activity.
type Resolver interface {
	Resolve(activity string) (string, error)
}

// Func adapts a plain function to the Resolver interface.
type Func func(activity string) (string, error)

func (f Func) Resolve(activity string) (string, error) { return f(activity) }

// Map resolves activities from a fixed table.
type Map map[string]string

func (m Map) Resolve(activity string) (string, error) {
	path, ok := m[activity]
	if !ok || path == "" {
		return "", fmt.Errorf("%w '%s'", ErrUnresolved, activity)
	}
	return path, nil
}

// Prompt asks for each path on out and reads one line from in.
type Prompt struct {
	in  *bufio.Reader
	out io.Writer
}

// NewPrompt creates an interactive resolver.
func NewPrompt(in io.Reader, out io.Writer) *Prompt {
	return &Prompt{in: bufio.NewReader(in), out: out}
}

func (p *Prompt) Resolve(activity string) (string, error) {
	if _, err := fmt.Fprintf(p.out, "Enter path for '%s' pcap file: ", activity); err != nil {
		return "", err
	}
	line, err := p.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read path for '%s': %w", activity, err)
	}
	path := strings.TrimRight(line, "\r\n")
	if path == "" {
		return "", fmt.Errorf("%w '%s'", ErrUnresolved, activity)
	}
	return path, nil
}

// Chain tries each resolver in order and returns the first path found.
type Chain []Resolver

func (c Chain) Resolve(activity string) (string, error) {
	for _, r := range c {
		path, err := r.Resolve(activity)
		if err == nil && path != "" {
			return path, nil
		}
		if err != nil && !errors.Is(err, ErrUnresolved) {
			return "", err
		}
	}
	return "", fmt.Errorf("%w '%s'", ErrUnresolved, activity)
}
