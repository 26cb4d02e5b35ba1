package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"golang.org/x/term"
)

var stdin = bufio.NewReader(os.Stdin)

// isTTY reports whether prompts can be shown at all.
func isTTY() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

func readLine() (string, error) {
	line, err := stdin.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// promptSelect lists options and reads a 1-based index, returning it 0-based.
// Input that is not a number yields -1 so the caller re-prompts.
func promptSelect(prompt string, options []string) (int, error) {
	bold := color.New(color.Bold)
	bold.Println(prompt)
	for i, opt := range options {
		fmt.Printf("  %d) %s\n", i+1, opt)
	}
	fmt.Printf("Select [1-%d]: ", len(options))
	line, err := readLine()
	if err != nil {
		return 0, err
	}
	idx, err := strconv.Atoi(line)
	if err != nil {
		return -1, nil
	}
	return idx - 1, nil
}

// promptFloat reads a float, falling back to def on empty input.
func promptFloat(prompt string, def float64) (float64, error) {
	fmt.Printf("%s (default %g): ", prompt, def)
	line, err := readLine()
	if err != nil {
		return 0, err
	}
	if line == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(line, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid numeric input %q", line)
	}
	return v, nil
}

// promptRequiredFloat reads a float with no default.
func promptRequiredFloat(prompt string) (float64, error) {
	fmt.Printf("%s: ", prompt)
	line, err := readLine()
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(line, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid numeric input %q", line)
	}
	return v, nil
}

// promptMode asks for buyback or liquidation.
func promptMode() (string, error) {
	fmt.Print("Select mode: buyback or liquidation (b/l): ")
	line, err := readLine()
	if err != nil {
		return "", err
	}
	switch {
	case strings.HasPrefix(strings.ToLower(line), "b"):
		return "buyback", nil
	case strings.HasPrefix(strings.ToLower(line), "l"):
		return "liquidation", nil
	}
	return "", fmt.Errorf("invalid mode %q", line)
}
