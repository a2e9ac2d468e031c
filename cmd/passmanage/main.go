package main

import "github.com/br-sch/PassManageApp/cmd/passmanage/cmd"

func main() {
	cmd.Execute()
}
