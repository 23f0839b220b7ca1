package main

import "github.com/lepinkainen/posterratings/cmd"

var execute = cmd.Execute

func main() {
	execute()
}
