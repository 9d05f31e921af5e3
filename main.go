package main

import "github.com/JakeFAU/standards-sync/cmd"

func main() {
	cmd.Execute()
}
