package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/meenmo/optcal/cmd/calibrate/internal/fit"
	"github.com/meenmo/optcal/cmd/calibrate/internal/price"
	"github.com/meenmo/optcal/cmd/calibrate/internal/variance"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		usage(stderr)
		return 2
	}

	switch strings.ToLower(strings.TrimSpace(args[0])) {
	case "fit":
		return fit.Run(args[1:], stdin, stdout, stderr)
	case "price":
		return price.Run(args[1:], stdin, stdout, stderr)
	case "variance", "var":
		return variance.Run(args[1:], stdin, stdout, stderr)
	case "-h", "--help", "help":
		usage(stdout)
		return 0
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n", args[0])
		usage(stderr)
		return 2
	}
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "Usage: calibrate <command> [options]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  fit       Calibrate models to option quotes")
	fmt.Fprintln(w, "            -input FILE  -sheet NAME  -config FILE  -models gbm,lmrgw,lmrgw-numerical")
	fmt.Fprintln(w, "            -guess P1,P2,...  -p0 P00,P01,P11  -jobs N")
	fmt.Fprintln(w, "  price     Price option quotes with a model")
	fmt.Fprintln(w, "            -input FILE  -sheet NAME  -config FILE  -model NAME")
	fmt.Fprintln(w, "            -params P1,P2,...  -p0 P00,P01,P11  -r RATE")
	fmt.Fprintln(w, "  variance  Model variance of log spot by horizon (alias: var)")
	fmt.Fprintln(w, "            -config FILE  -model NAME  -params P1,P2,...  -p0 P00,P01,P11  -t T1,T2,...")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Quotes are read as CSV from stdin when -input is empty. Results are JSON on stdout,")
	fmt.Fprintln(w, "logs go to stderr.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Run `calibrate <command> -h` for command-specific help.")
}
