package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/moghouse/gearsweep/pkg/gearswap"
	"github.com/moghouse/gearsweep/pkg/inventory"
	"github.com/moghouse/gearsweep/pkg/orphan"
)

func main() {
	// Usage: go run main.go -lua war.lua -inventory inventory.csv

	luaFlag := flag.String("lua", "", "Path to a GearSwap lua file")
	invFlag := flag.String("inventory", "", "Path to an inventory CSV export")
	flag.Parse()

	if *luaFlag == "" || *invFlag == "" {
		fmt.Println("Both -lua and -inventory are required.")
		return
	}

	text, err := os.ReadFile(*luaFlag)
	if err != nil {
		fmt.Println(err)
		return
	}

	// The scanner takes raw text; read the bytes however you like.
	refs, _ := gearswap.Scan(
		[]gearswap.ScriptFile{{Name: *luaFlag, Text: string(text)}},
		gearswap.ScanOptions{},
	)

	items, _, err := inventory.ParseFile(*invFlag)
	if err != nil {
		fmt.Println(err)
		return
	}

	for _, e := range orphan.Detect(items, refs, orphan.DefaultTrackedContainers()) {
		fmt.Println(e.ContainerName, e.DisplayName())
	}
}
