/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package main

import "github.com/ssargent/scalarfield/cmd/sfield/cmd"

func main() {
	cmd.Execute()
}
