package main

import "github.com/selendra/dex-sub001/cmd"

func main() {
	cmd.Execute()
}
