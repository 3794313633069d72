package main

import (
	"github.com/cspresent/present/internal/cli"
)

func main() {
	cli.Execute()
}
