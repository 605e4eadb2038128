// Command mktemplate writes a blank invoice template workbook whose captions
// line up with the sheet layout used by the server.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/diewo77/sheet-invoices/internal/sheet"
)

func main() {
	out := flag.String("o", "invoice_template.xlsx", "output path")
	layoutFile := flag.String("layout", os.Getenv("SHEET_LAYOUT_FILE"), "layout override JSON")
	force := flag.Bool("f", false, "overwrite an existing file")
	flag.Parse()

	layout, err := sheet.LoadLayout(*layoutFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "layout error: %v\n", err)
		os.Exit(2)
	}

	if _, err := os.Stat(*out); err == nil && !*force {
		fmt.Fprintf(os.Stderr, "%s exists, use -f to overwrite\n", *out)
		os.Exit(1)
	}

	if err := sheet.WriteBlankTemplate(*out, layout); err != nil {
		fmt.Fprintf(os.Stderr, "write error: %v\n", err)
		os.Exit(3)
	}
	fmt.Println(*out)
}
