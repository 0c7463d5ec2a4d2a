package main

import "github.com/oshokin/siren-guard/cmd/siren-ctl/cmd"

func main() {
	cmd.Execute()
}
