package main

import "github.com/Rorical/wireui/cmd"

func main() {
	cmd.Execute()
}
