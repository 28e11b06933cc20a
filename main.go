package main

import (
	"Phonolib/cmd"
)

func main() {
	cmd.Execute()
}
