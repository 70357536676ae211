package main

import "github.com/GalRogozinski/tangledb/cmd"

func main() {
	cmd.Execute()
}
