package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/noah-isme/backend-zawadi/internal/menu"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("menucheck", flag.ContinueOnError)
	fs.SetOutput(stderr)
	path := fs.String("file", envOrDefault("CATALOG_PATH", "configs/menu.json"), "catalog file to validate")
	lockInclusions := fs.Bool("lock-inclusions", false, "validate with included toppings locked")
	maxSauces := fs.Int("max-sauces", 0, "default sauce limit per item (0 = unlimited)")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	catalog, err := menu.LoadFile(*path, menu.Defaults{LockInclusions: *lockInclusions, MaxSauces: *maxSauces})
	if err != nil {
		fmt.Fprintf(stderr, "%s: %v\n", *path, err)
		return 1
	}

	customizable := 0
	for _, it := range catalog.Items() {
		if it.Customizable() {
			customizable++
		}
	}

	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CATEGORY\tITEMS")
	for _, s := range catalog.Summaries() {
		fmt.Fprintf(tw, "%s\t%d\n", s.Category, s.Items)
	}
	_ = tw.Flush()
	fmt.Fprintf(stdout, "%d items, %d customizable: ok\n", catalog.Len(), customizable)
	return 0
}

func envOrDefault(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
