package main

import "github.com/oshokin/siren-guard/cmd/siren-guard/cmd"

func main() {
	cmd.Execute()
}
