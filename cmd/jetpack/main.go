package main

import "github.com/ValentinKolb/jetpack/cmd"

func main() {
	cmd.Execute()
}
