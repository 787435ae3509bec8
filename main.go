package main

import "github.com/jmehdipour/salon-campaigns/cmd"

func main() {
	cmd.Execute()
}
