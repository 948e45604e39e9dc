/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>

*/
package main

import "github.com/anishthebud/look-at-me-2/cmd"

func main() {
	cmd.Execute()
}
