package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/trezcool/pagebuilder/core/layout"
)

func (cli *commandLine) catalog() error {
	w := tabwriter.NewWriter(cli.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "CATEGORY\tTYPE\tNAME\tFIELDS")
	for _, cat := range layout.Catalog() {
		for _, ct := range cat.Components {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", cat.Name, ct.Type, ct.Name, len(ct.Fields()))
		}
	}
	return w.Flush()
}
