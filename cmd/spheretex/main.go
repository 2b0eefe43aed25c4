package main

import "github.com/MeKo-Tech/spheretex/internal/cmd"

func main() {
	cmd.Execute()
}
