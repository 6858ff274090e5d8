package main

import "github.com/inkyvoxel/interrogate/cmd"

var execCmd = cmd.Execute

func main() {
	execCmd()
}
