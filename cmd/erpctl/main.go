package main

import (
	"os"

	"github.com/JonMunkholm/solarerp/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
