package main

import "github.com/khanhnv2901/privscan/cmd"

var execCmd = cmd.Execute

func main() {
	execCmd()
}
