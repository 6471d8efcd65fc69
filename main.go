package main

import "github.com/Tiliavir/trivial-focus-tracker/cmd"

func main() {
	cmd.Execute()
}
