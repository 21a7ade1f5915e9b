package sysboard

import (
	"bytes"
	"fmt"
	"os/exec"
	"runtime"
)

// commandBackend shells out to pbcopy/pbpaste on macOS and xclip or xsel on
// Linux. It only handles text.
type commandBackend struct{}

func (commandBackend) name() string { return "command" }

// available returns true if the clipboard commands are installed.
func (commandBackend) available() bool {
	switch runtime.GOOS {
	case "darwin":
		if _, err := exec.LookPath("pbcopy"); err != nil {
			return false
		}
		if _, err := exec.LookPath("pbpaste"); err != nil {
			return false
		}
		return true
	case "linux":
		if _, err := exec.LookPath("xclip"); err == nil {
			return true
		}
		if _, err := exec.LookPath("xsel"); err == nil {
			return true
		}
		return false
	default:
		return false
	}
}

func (commandBackend) readText() []byte {
	var (
		data []byte
		err  error
	)
	switch runtime.GOOS {
	case "darwin":
		data, err = readWithCommand("pbpaste")
	case "linux":
		// Try xclip first
		data, err = readWithCommand("xclip", "-selection", "clipboard", "-o")
		if err != nil {
			data, err = readWithCommand("xsel", "--clipboard", "--output")
		}
	default:
		return nil
	}
	if err != nil {
		return nil
	}
	return data
}

func (commandBackend) readImage() []byte { return nil }

func (commandBackend) writeText(data []byte) error {
	switch runtime.GOOS {
	case "darwin":
		if err := writeWithCommand(data, "pbcopy"); err != nil {
			return fmt.Errorf("failed to run pbcopy: %w", err)
		}
		return nil
	case "linux":
		if err := writeWithCommand(data, "xclip", "-selection", "clipboard"); err == nil {
			return nil
		}
		if err := writeWithCommand(data, "xsel", "--clipboard", "--input"); err != nil {
			return fmt.Errorf("failed to write clipboard (tried xclip and xsel): %w", err)
		}
		return nil
	default:
		return fmt.Errorf("clipboard operations not supported on %s", runtime.GOOS)
	}
}

func (commandBackend) writeImage([]byte) error {
	return fmt.Errorf("image clipboard requires the native backend")
}

// readWithCommand executes a command and returns its output
func readWithCommand(name string, args ...string) ([]byte, error) {
	cmd := exec.Command(name, args...)
	var out bytes.Buffer
	cmd.Stdout = &out

	if err := cmd.Run(); err != nil {
		return nil, err
	}

	return out.Bytes(), nil
}

// writeWithCommand executes a command with data as stdin
func writeWithCommand(data []byte, name string, args ...string) error {
	cmd := exec.Command(name, args...)
	cmd.Stdin = bytes.NewReader(data)

	return cmd.Run()
}
