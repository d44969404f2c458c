package main

import "github.com/lukman83/gunpla-scrap/cmd"

func main() {
	cmd.Execute()
}
