package main

import (
	"github.com/bitshelter/filecatalog/cmd"
)

func main() {
	cmd.Execute()
}
