package main

import "github.com/frahmantamala/ops-portal/cmd"

func main() {
	cmd.Execute()
}
