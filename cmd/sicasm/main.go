package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/shepheb/sicasm/sicxe"
)

var output = flag.String("out", "a.obj", "file name for the object program")
var listing = flag.String("listing", "", "file name for the listing (default: <out> with .lst)")

func main() {
	flag.Parse()

	file := flag.Arg(0)
	if file == "" {
		fmt.Println("usage: sicasm [-out a.obj] [-listing a.lst] source.asm")
		os.Exit(1)
	}

	src, err := os.ReadFile(file)
	if err != nil {
		fmt.Printf("could not read %s: %v\n", file, err)
		os.Exit(1)
	}

	result, errs := sicxe.Assemble(file, string(src))
	if len(errs) > 0 {
		for _, e := range errs {
			fmt.Println(e)
		}
		os.Exit(1)
	}

	if err := os.WriteFile(*output, []byte(result.ObjectProgram), 0644); err != nil {
		fmt.Printf("could not write %s: %v\n", *output, err)
		os.Exit(1)
	}

	lst := *listing
	if lst == "" {
		lst = defaultListingName(*output)
	}
	if err := os.WriteFile(lst, []byte(result.Listing), 0644); err != nil {
		fmt.Printf("could not write %s: %v\n", lst, err)
		os.Exit(1)
	}
}

func defaultListingName(out string) string {
	for i := len(out) - 1; i >= 0; i-- {
		if out[i] == '.' {
			return out[:i] + ".lst"
		}
	}
	return out + ".lst"
}
