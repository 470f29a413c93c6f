package main

import "github.com/voxsentry/voxsentry/cmd"

func main() {
	cmd.Execute()
}
