package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"strings"
)

type interactiveCmd struct {
	r  *root
	in io.Reader
}

func (i *interactiveCmd) Program() string {
	return i.r.program
}

func (i *interactiveCmd) FlagSet() *flag.FlagSet {
	return nil
}

// Run reads commands line by line and runs each as if it were given on the
// command line.
func (i *interactiveCmd) Run() error {
	fmt.Fprintln(i.r.stdout, "Enter commands (type 'exit' to quit)")
	scanner := bufio.NewScanner(i.in)
	for {
		fmt.Fprint(i.r.stdout, "> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if line == "exit" || line == "quit" {
			break
		}
		args := strings.Fields(line)
		if args[0] == "interactive" {
			continue
		}
		if err := i.r.Run(args); err != nil {
			fmt.Fprintln(i.r.stderr, err)
		}
	}
	return scanner.Err()
}
