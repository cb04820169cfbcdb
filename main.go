package main

import "github.com/RyanBlaney/sonido-coach/cmd"

func main() {
	cmd.Execute()
}
