package main

import "fintrans/cmd"

func main() {
	cmd.Execute()
}
