// Command halsim runs the drivers against a simulated chip and drives them
// from a command script. The chip variant is fixed at build time; build
// with -tags lpc17xx for the LPC17xx topology.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"golang.org/x/term"

	"devicehal-go/hal/chip"
	"devicehal-go/x/logx"
)

func main() {
	verbose := flag.Bool("v", false, "debug logging")
	script := flag.String("script", "", "command file (default stdin)")
	flag.Parse()

	if *verbose {
		logx.SetLevel(slog.LevelDebug)
	}

	var in io.Reader = os.Stdin
	prompt := *script == "" && term.IsTerminal(int(os.Stdin.Fd()))
	if *script != "" {
		f, err := os.Open(*script)
		if err != nil {
			fmt.Fprintln(os.Stderr, "halsim:", err)
			os.Exit(1)
		}
		defer f.Close()
		in = f
	}

	if code := run(chip.Selected, in, os.Stdout, prompt); code != 0 {
		os.Exit(code)
	}
}

// run executes every line of in and returns the process exit code: 0 when
// all commands succeeded, 1 otherwise. With prompt set it prints a prompt
// before each line.
func run(v chip.Variant, in io.Reader, out io.Writer, prompt bool) int {
	c := newConsole(v, out)
	defer c.close()

	c.printf("halsim %s: %d uarts, %d timers, %d ssps, %d dma channels\n",
		v.Name, v.UARTs, v.Timers, v.SSPs, v.DMAChannels)
	code := 0
	sc := bufio.NewScanner(in)
	for line := 1; ; line++ {
		if prompt {
			c.printf("> ")
		}
		if !sc.Scan() {
			break
		}
		if sc.Text() == "quit" {
			break
		}
		if err := c.exec(sc.Text()); err != nil {
			c.printf("line %d: %v\n", line, err)
			logx.Debug(logx.Sim, "command failed", "line", line, "err", err)
			code = 1
		}
	}
	if err := sc.Err(); err != nil {
		c.printf("read: %v\n", err)
		code = 1
	}
	return code
}
