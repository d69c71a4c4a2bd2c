package main

import "github.com/tingold/orb-shapefile/cmd/shpinfo/cmd"

func main() {
	cmd.Execute()
}
