package main

import "github.com/fakeyudi/termtrace/cmd"

func main() {
	cmd.Execute()
}
