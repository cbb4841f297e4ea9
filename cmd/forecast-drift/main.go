package main

import "github.com/i474232898/forecast-drift/internal/cli"

func main() {
	cli.Execute()
}
