package main

import "github.com/timvw/screen-patrol/cmd"

func main() {
	cmd.Execute()
}
