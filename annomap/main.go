package main

import (
	"github.com/Doomsbay/AnnoMap/annomap/cmd"
)

func main() {
	cmd.Execute()
}
