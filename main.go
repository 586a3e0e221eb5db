package main

import "github.com/theirongolddev/aboradar/cmd"

func main() {
	cmd.Execute()
}
