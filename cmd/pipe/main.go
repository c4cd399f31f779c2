package main

import "github.com/pipenetwork/libpipe-go/cmd/pipe/cmd"

func main() {
	cmd.Execute()
}
