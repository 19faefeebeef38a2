package main

import "github.com/octoweave/octoweave/cmd/octoweave/cmd"

func main() {
	cmd.Execute()
}
