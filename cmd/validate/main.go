package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gnemet/crudgrid"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: crudgrid-validate <registry_path1> [registry_path2] ...")
		os.Exit(1)
	}

	allValid := true
	for _, arg := range os.Args[1:] {
		name := filepath.Base(arg)

		data, err := os.ReadFile(arg)
		if err != nil {
			fmt.Printf("❌ Cannot read %s: %v\n", name, err)
			allValid = false
			continue
		}

		problems, err := crudgrid.ValidateRegistry(data)
		if err != nil {
			fmt.Printf("❌ Error validating %s: %v\n", name, err)
			allValid = false
			continue
		}
		if len(problems) > 0 {
			fmt.Printf("❌ %s is invalid!\n", name)
			for _, p := range problems {
				fmt.Printf("   - %s\n", p)
			}
			allValid = false
			continue
		}

		// the schema passed; the remaining checks need the decoded registry
		if _, err := crudgrid.LoadRegistry(data); err != nil {
			fmt.Printf("❌ %s is invalid!\n   - %v\n", name, err)
			allValid = false
			continue
		}
		fmt.Printf("✅ %s is valid.\n", name)
	}

	if !allValid {
		os.Exit(1)
	}
}
