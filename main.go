package main

import "github.com/oddsaxiom/pipeline/cmd"

func main() {
	cmd.Execute()
}
