package main

import "github.com/oshokin/alarm-engine/cmd/alarm-ctl/cmd"

func main() {
	cmd.Execute()
}
