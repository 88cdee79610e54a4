package main

import "github.com/frahmantamala/rbac-engine/cmd"

func main() {
	cmd.Execute()
}
