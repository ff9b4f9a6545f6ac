// rules-check validates a rule file without touching any knowledge base:
// every line is parsed and the rejects are reported with their line number.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/cognicore/expert/pkg/expert/ruleio"
)

func main() {
	verbose := flag.Bool("v", false, "Print accepted rules as well")
	flag.Parse()

	if flag.NArg() == 0 {
		log.Fatal("usage: rules-check [-v] <file.txt|file.html> ...")
	}

	exitCode := 0
	for _, path := range flag.Args() {
		res, err := ruleio.LoadFile(path)
		if err != nil {
			log.Fatalf("%s: %v", path, err)
		}

		fmt.Printf("%s: %d rule(s) parsed, %d error(s)\n", path, len(res.Rules), len(res.Errors))
		if *verbose {
			for _, r := range res.Rules {
				fmt.Printf("  ok: %s\n", r)
			}
		}
		for _, e := range res.Errors {
			fmt.Printf("  %s\n", e)
		}
		if len(res.Errors) > 0 {
			exitCode = 1
		}
	}
	os.Exit(exitCode)
}
