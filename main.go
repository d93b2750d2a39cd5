package main

import "github.com/Rakhulsr/axen-cart/app/cmd"

func main() {
	cmd.RunCli()
}
